// Package camera runs the counting pipeline for one camera stream.
package camera

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/counting"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/stream"
)

// Sink persists the records of one tick.
type Sink interface {
	Write(ctx context.Context, records []model.AggregationRecord) error
}

// Observer receives every tick after it was handed to the sink. Observers are
// shared between workers and must be safe for concurrent use.
type Observer interface {
	Publish(records []model.AggregationRecord)
}

type Options struct {
	Camera        model.CameraConfig
	RunID         string
	Names         model.ClassNames
	Interval      time.Duration
	ConfThreshold float64
	FrameSkip     int  // frames skipped after each processed frame
	FinalFlush    bool // emit the partial interval when the stream ends
	Clock         clock.Clock
	Logger        *logger.Logger
}

// Stats are the worker's running counters.
type Stats struct {
	FramesSeen      int64 `json:"frames_seen"`
	FramesProcessed int64 `json:"frames_processed"`
	ObjectsCounted  int64 `json:"objects_counted"`
	RecordsEmitted  int64 `json:"records_emitted"`
	Intervals       int64 `json:"intervals"`
	PersistFailures int64 `json:"persist_failures"`
}

// Worker owns the registry, tracker and aggregator of one camera.
// Run must be called at most once.
type Worker struct {
	opts       Options
	registry   *region.Registry
	tracker    *counting.Tracker
	aggregator *counting.Aggregator
	source     stream.Source
	sink       Sink
	observers  []Observer
	logger     *logger.Logger

	framesSeen      atomic.Int64
	framesProcessed atomic.Int64
	objectsCounted  atomic.Int64
	recordsEmitted  atomic.Int64
	intervals       atomic.Int64
	persistFailures atomic.Int64

	mu     sync.Mutex
	totals map[model.ClassID]int
}

func NewWorker(opts Options, source stream.Source, sink Sink, observers ...Observer) *Worker {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewConsole(os.Stderr, "info").Named(opts.Camera.Name)
	}
	if opts.FrameSkip < 0 {
		opts.FrameSkip = 0
	}

	registry := region.NewRegistry(opts.Camera.Regions)
	classes := registry.Classes()
	tracker := counting.NewTracker(classes)

	totals := make(map[model.ClassID]int, len(classes))
	for _, c := range classes {
		totals[c] = 0
	}

	return &Worker{
		opts:     opts,
		registry: registry,
		tracker:  tracker,
		aggregator: counting.NewAggregator(counting.AggregatorConfig{
			RunID:    opts.RunID,
			Camera:   opts.Camera.Name,
			Names:    opts.Names,
			Classes:  classes,
			Interval: opts.Interval,
		}, tracker, opts.Clock),
		source:    source,
		sink:      sink,
		observers: observers,
		logger:    opts.Logger,
		totals:    totals,
	}
}

// Run pulls batches until the stream ends or ctx is cancelled. Both end the
// worker cleanly; a cancelled worker does not emit its partial interval.
// Stream failures are returned as *stream.Error.
func (w *Worker) Run(ctx context.Context) error {
	if w.registry.Len() == 0 {
		w.logger.Warning("No regions configured for camera %s, objects will not be counted", w.opts.Camera.Name)
	}
	w.logger.Info("Camera %s started (regions: %d, interval: %v, frame skip: %d)",
		w.opts.Camera.Name, w.registry.Len(), w.opts.Interval, w.opts.FrameSkip)

	stride := int64(w.opts.FrameSkip + 1)
	for {
		batch, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Camera %s stopped", w.opts.Camera.Name)
				return nil
			}
			if errors.Is(err, io.EOF) {
				if w.opts.FinalFlush {
					w.emit(ctx, w.aggregator.Flush())
				}
				w.logger.Info("Camera %s stream ended after %d frames", w.opts.Camera.Name, w.framesSeen.Load())
				return nil
			}
			var streamErr *stream.Error
			if !errors.As(err, &streamErr) {
				err = &stream.Error{Source: w.opts.Camera.SourcePath, Op: "read", Err: err}
			}
			return err
		}

		seen := w.framesSeen.Add(1)
		if (seen-1)%stride != 0 {
			continue
		}
		w.framesProcessed.Add(1)

		w.process(batch)
		w.emit(ctx, w.aggregator.Check())
	}
}

func (w *Worker) process(batch model.Batch) {
	for _, d := range batch.Detections {
		if d.Confidence < w.opts.ConfThreshold || !d.Tracked() {
			continue
		}
		if !counting.Assign(d, w.registry).InRegion {
			continue
		}
		if w.tracker.Observe(d.ClassID, d.TrackID) {
			w.objectsCounted.Add(1)
			w.mu.Lock()
			w.totals[d.ClassID]++
			w.mu.Unlock()
			w.logger.Debug("New %s #%d in region on frame %d", w.opts.Names.Name(d.ClassID), *d.TrackID, batch.Frame)
		}
	}
}

func (w *Worker) emit(ctx context.Context, records []model.AggregationRecord) {
	if len(records) == 0 {
		return
	}
	w.intervals.Add(1)
	w.recordsEmitted.Add(int64(len(records)))

	if err := w.sink.Write(ctx, records); err != nil {
		w.persistFailures.Add(1)
		w.logger.Error("Failed to store interval %d: %v", records[0].Interval, err)
	} else {
		w.logger.Info("DB updated - interval %d, %d classes", records[0].Interval, len(records))
	}

	for _, o := range w.observers {
		o.Publish(records)
	}
}

// Totals returns the cumulative unique count per class with a region.
func (w *Worker) Totals() map[model.ClassID]int {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[model.ClassID]int, len(w.totals))
	for k, v := range w.totals {
		out[k] = v
	}
	return out
}

func (w *Worker) Stats() Stats {
	return Stats{
		FramesSeen:      w.framesSeen.Load(),
		FramesProcessed: w.framesProcessed.Load(),
		ObjectsCounted:  w.objectsCounted.Load(),
		RecordsEmitted:  w.recordsEmitted.Load(),
		Intervals:       w.intervals.Load(),
		PersistFailures: w.persistFailures.Load(),
	}
}
