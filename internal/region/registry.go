// Package region holds per-camera counting regions and the providers that load them.
package region

import (
	"image"
	"sort"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// Registry is a read-only class -> region lookup for one camera.
type Registry struct {
	regions model.RegionMap
	classes []model.ClassID
}

// NewRegistry copies regions into a new registry. A nil map yields an empty registry.
func NewRegistry(regions model.RegionMap) *Registry {
	r := &Registry{regions: regions.Clone()}
	for id := range r.regions {
		r.classes = append(r.classes, id)
	}
	sort.Slice(r.classes, func(i, j int) bool { return r.classes[i] < r.classes[j] })
	return r
}

// For returns the region configured for a class.
func (r *Registry) For(id model.ClassID) (model.Region, bool) {
	reg, ok := r.regions[id]
	return reg, ok
}

// Classes returns the classes that have a region, in ascending order.
func (r *Registry) Classes() []model.ClassID {
	out := make([]model.ClassID, len(r.classes))
	copy(out, r.classes)
	return out
}

// Len returns the number of configured regions.
func (r *Registry) Len() int {
	return len(r.regions)
}

// Map returns a copy of the underlying mapping.
func (r *Registry) Map() model.RegionMap {
	return r.regions.Clone()
}

// FromRect converts a selected rectangle into a region. An empty selection,
// as returned when the user skips a class, reports false.
func FromRect(id model.ClassID, rect image.Rectangle) (model.Region, bool) {
	rect = rect.Canon()
	if rect.Empty() || rect.Min.X < 0 || rect.Min.Y < 0 {
		return model.Region{}, false
	}
	return model.Region{ClassID: id, X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}, true
}
