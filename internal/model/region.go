package model

import "fmt"

// ClassID identifies an object class produced by the detection model.
type ClassID int

// Region is a pixel-space rectangle used as the counting zone for one class.
type Region struct {
	ClassID ClassID `json:"class_id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

// RegionMap maps a class to its region. At most one region per class per camera.
type RegionMap map[ClassID]Region

// Contains reports whether the point lies inside the region, edges included.
func (r Region) Contains(x, y int) bool {
	return r.X <= x && x <= r.X+r.Width && r.Y <= y && y <= r.Y+r.Height
}

// Validate checks that all coordinates are non-negative.
func (r Region) Validate() error {
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("region for class %d has negative coordinates [%d %d %d %d]",
			r.ClassID, r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

// Clone returns an independent copy of the mapping.
func (m RegionMap) Clone() RegionMap {
	out := make(RegionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ClassNames maps class ids to display names.
type ClassNames map[ClassID]string

// Name returns the configured name for a class, or "Class <id>" when none is configured.
func (n ClassNames) Name(id ClassID) string {
	if name, ok := n[id]; ok {
		return name
	}
	return fmt.Sprintf("Class %d", id)
}
