// Package counting turns per-frame detections into per-class unique object counts
// and periodic delta records.
package counting

import (
	"image"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
)

// Assignment is the region membership decision for one detection.
type Assignment struct {
	Center    image.Point
	HasRegion bool
	InRegion  bool
}

// Assign tests the detection's box center against the region of its class.
// Detections of classes without a region are never in region.
func Assign(d model.Detection, reg *region.Registry) Assignment {
	a := Assignment{Center: d.Center()}

	r, ok := reg.For(d.ClassID)
	if !ok {
		return a
	}
	a.HasRegion = true
	a.InRegion = r.Contains(a.Center.X, a.Center.Y)
	return a
}
