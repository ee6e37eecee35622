package counting

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// AggregatorConfig carries the per-camera settings stamped on every record.
type AggregatorConfig struct {
	RunID    string
	Camera   string
	Names    model.ClassNames
	Classes  []model.ClassID // emission order
	Interval time.Duration
}

// Aggregator converts tracker totals into per-interval delta records.
//
// The interval clock restarts at each emission instead of following a fixed schedule,
// so an interval can run long by up to one frame of processing time.
type Aggregator struct {
	cfg      AggregatorConfig
	tracker  *Tracker
	clock    clock.Clock
	lastEmit time.Time
	interval int
}

// NewAggregator starts the first interval at the current clock time.
func NewAggregator(cfg AggregatorConfig, tracker *Tracker, clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{
		cfg:      cfg,
		tracker:  tracker,
		clock:    clk,
		lastEmit: clk.Now(),
	}
}

// Check is called once per processed frame. It returns one record per tracked class
// when more than the configured interval has elapsed since the last emission, and
// nil otherwise.
func (a *Aggregator) Check() []model.AggregationRecord {
	now := a.clock.Now()
	if now.Sub(a.lastEmit) <= a.cfg.Interval {
		return nil
	}
	return a.emit(now)
}

// Flush emits the current partial interval regardless of elapsed time.
func (a *Aggregator) Flush() []model.AggregationRecord {
	return a.emit(a.clock.Now())
}

func (a *Aggregator) emit(now time.Time) []model.AggregationRecord {
	a.interval++

	records := make([]model.AggregationRecord, 0, len(a.cfg.Classes))
	for _, id := range a.cfg.Classes {
		delta := a.tracker.advance(id)
		records = append(records, model.AggregationRecord{
			RunID:     a.cfg.RunID,
			Camera:    a.cfg.Camera,
			ClassID:   id,
			ClassName: a.cfg.Names.Name(id),
			Delta:     delta,
			Detected:  delta > 0,
			Interval:  a.interval,
			EmittedAt: now,
		})
	}

	a.lastEmit = now
	return records
}
