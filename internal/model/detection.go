package model

import (
	"image"
	"time"
)

// Detection is one tracked object reported by the detection engine for a single frame.
type Detection struct {
	ClassID    ClassID         `json:"class_id"`
	TrackID    *int64          `json:"track_id,omitempty"` // nil when the tracker gave no identity
	Box        image.Rectangle `json:"box"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Tracked reports whether the detection carries an identity token.
func (d Detection) Tracked() bool {
	return d.TrackID != nil
}

// Center returns the integer midpoint of the bounding box.
func (d Detection) Center() image.Point {
	return image.Pt(floorDiv(d.Box.Min.X+d.Box.Max.X, 2), floorDiv(d.Box.Min.Y+d.Box.Max.Y, 2))
}

// Batch holds every detection reported for one frame.
type Batch struct {
	Frame      int64       `json:"frame"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
