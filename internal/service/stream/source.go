package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// Source yields detection batches frame by frame. Next returns io.EOF once the
// stream has ended normally and ctx.Err() when ctx is cancelled while waiting.
type Source interface {
	Next(ctx context.Context) (model.Batch, error)
	Close() error
}

// Error reports a detection stream that could not be opened or read.
// It ends the worker that owns the stream.
type Error struct {
	Source string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var errNoFrame = errors.New("frame missing")

// decodeLine parses one JSON line of the form
//
//	{"frame":12,"timestamp":1718000000.5,"detections":[{"class":2,"id":7,"box":[x1,y1,x2,y2],"conf":0.91}]}
//
// A missing or null "id" marks an untracked detection. A missing "conf" counts as 1.
// A missing "timestamp" is replaced by the wall clock. errNoFrame is returned with
// an otherwise complete batch when "frame" is absent.
func decodeLine(line []byte) (model.Batch, error) {
	if !gjson.ValidBytes(line) {
		return model.Batch{}, errors.New("invalid json")
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return model.Batch{}, errors.New("expected a json object")
	}

	batch := model.Batch{Timestamp: time.Now()}
	if ts := root.Get("timestamp"); ts.Exists() && ts.Type == gjson.Number {
		sec, frac := math.Modf(ts.Float())
		batch.Timestamp = time.Unix(int64(sec), int64(frac*float64(time.Second)))
	}

	detections := root.Get("detections")
	if detections.Exists() && !detections.IsArray() && detections.Type != gjson.Null {
		return model.Batch{}, errors.New("detections must be an array")
	}

	for i, item := range detections.Array() {
		d, err := decodeDetection(item)
		if err != nil {
			return model.Batch{}, fmt.Errorf("detections[%d]: %w", i, err)
		}
		d.Timestamp = batch.Timestamp
		batch.Detections = append(batch.Detections, d)
	}

	frame := root.Get("frame")
	if !frame.Exists() {
		return batch, errNoFrame
	}
	batch.Frame = frame.Int()
	return batch, nil
}

func decodeDetection(item gjson.Result) (model.Detection, error) {
	var d model.Detection

	class := item.Get("class")
	if class.Type != gjson.Number {
		return d, errors.New("class must be a number")
	}
	d.ClassID = model.ClassID(class.Int())

	box := item.Get("box").Array()
	if len(box) != 4 {
		return d, fmt.Errorf("box must have 4 values, got %d", len(box))
	}
	for _, v := range box {
		if v.Type != gjson.Number {
			return d, errors.New("box values must be numbers")
		}
	}
	d.Box.Min.X = int(box[0].Float())
	d.Box.Min.Y = int(box[1].Float())
	d.Box.Max.X = int(box[2].Float())
	d.Box.Max.Y = int(box[3].Float())

	if id := item.Get("id"); id.Exists() && id.Type != gjson.Null {
		if id.Type != gjson.Number {
			return d, errors.New("id must be a number")
		}
		v := id.Int()
		d.TrackID = &v
	}

	d.Confidence = 1
	if conf := item.Get("conf"); conf.Exists() {
		d.Confidence = conf.Float()
	}
	return d, nil
}
