package model

import "time"

// AggregationRecord is the per-interval count for one class on one camera.
type AggregationRecord struct {
	RunID     string    `json:"run_id"`
	Camera    string    `json:"camera_name"`
	ClassID   ClassID   `json:"class_id"`
	ClassName string    `json:"name"`
	Delta     int       `json:"count"`
	Detected  bool      `json:"detected"`
	Interval  int       `json:"interval"`
	EmittedAt time.Time `json:"emitted_at"`
}
