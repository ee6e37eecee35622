package model

// CameraConfig describes one camera stream. Workers receive their own copy.
type CameraConfig struct {
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path"`
	Regions    RegionMap `json:"-"`
}

// Clone returns a copy that shares no mutable state with c.
func (c CameraConfig) Clone() CameraConfig {
	out := c
	if c.Regions != nil {
		out.Regions = c.Regions.Clone()
	}
	return out
}
