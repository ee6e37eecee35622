// Package service schedules one counting worker per configured camera.
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/metrics"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/camera"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/storage"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/stream"
)

// Worker states reported by Status.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopped  = "stopped"
	StateFailed   = "failed"
)

// WorkerFailure records a camera worker that ended abnormally: a returned
// error, a panic, or a non-zero exit of its process. Siblings keep running.
type WorkerFailure struct {
	Camera string
	Err    error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("camera %s: %v", e.Camera, e.Err)
}

func (e *WorkerFailure) Unwrap() error { return e.Err }

// Sink is a per-worker persistence handle.
type Sink interface {
	camera.Sink
	Close() error
}

// Dependencies are the collaborators a Manager builds workers from.
// Zero fields fall back to the production implementations.
type Dependencies struct {
	Regions    region.Provider
	OpenSource func(ctx context.Context, cam model.CameraConfig) (stream.Source, error)
	OpenSink   func(ctx context.Context, cam model.CameraConfig) (Sink, error)
	Observers  []camera.Observer // process-level, shared by all workers
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	RunID      string

	// Isolated-process mode: the binary and arguments re-executed per camera.
	Executable string
	Args       []string
	StopGrace  time.Duration
}

// WorkerStatus is a snapshot of one camera worker.
type WorkerStatus struct {
	Camera    string       `json:"camera"`
	State     string       `json:"state"`
	PID       int          `json:"pid,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	Error     string       `json:"error,omitempty"`
	Stats     camera.Stats `json:"stats"`
	Totals    map[int]int  `json:"totals,omitempty"`
	Relayed   int64        `json:"records_relayed,omitempty"`
}

type workerState struct {
	status WorkerStatus
	worker *camera.Worker
}

type Manager struct {
	cfg    *config.Config
	deps   Dependencies
	logger *logger.Logger

	mu       sync.Mutex
	workers  map[string]*workerState
	failures []error
}

func NewManager(cfg *config.Config, deps Dependencies, logger *logger.Logger) *Manager {
	if deps.RunID == "" {
		deps.RunID = uuid.New().String()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.StopGrace <= 0 {
		deps.StopGrace = 10 * time.Second
	}
	if deps.Regions == nil {
		deps.Regions = region.NewFileProvider(cfg.System.RegionDir, cfg.System.ModelPath)
	}
	if deps.OpenSource == nil {
		deps.OpenSource = func(ctx context.Context, cam model.CameraConfig) (stream.Source, error) {
			return stream.Open(ctx, cam.SourcePath, cfg.System.TrackerCommand)
		}
	}
	if deps.OpenSink == nil {
		deps.OpenSink = func(ctx context.Context, cam model.CameraConfig) (Sink, error) {
			store, err := storage.Open(ctx, cfg, logger.Named(cam.Name))
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}

	workers := make(map[string]*workerState, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		workers[cam.Name] = &workerState{status: WorkerStatus{Camera: cam.Name, State: StateStarting}}
	}

	return &Manager{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		workers: workers,
	}
}

// RunID identifies this run on every emitted record.
func (m *Manager) RunID() string {
	return m.deps.RunID
}

// Run starts every camera and blocks until all workers have ended or ctx is
// cancelled and they have stopped. It returns the combined WorkerFailures.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("🎬 Manager started - %d camera(s), mode %s, run %s", len(m.cfg.Cameras), m.cfg.Mode, m.deps.RunID)

	var wg sync.WaitGroup
	for _, cam := range m.cfg.Cameras {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.supervise(ctx, name)
		}(cam.Name)
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Info("🛑 All camera workers stopped (%d failed)", len(m.failures))
	return multierr.Combine(m.failures...)
}

func (m *Manager) supervise(ctx context.Context, name string) {
	m.update(name, func(s *workerState) {
		s.status.State = StateRunning
		s.status.StartedAt = time.Now()
	})
	if m.deps.Metrics != nil {
		m.deps.Metrics.WorkerStarted()
		defer m.deps.Metrics.WorkerStopped()
	}

	var err error
	if m.cfg.Mode == config.ModeIsolatedProcess {
		err = m.runProcess(ctx, name)
	} else {
		err = m.runGuarded(ctx, name)
	}

	if err == nil {
		m.update(name, func(s *workerState) { s.status.State = StateStopped })
		return
	}

	failure := &WorkerFailure{Camera: name, Err: err}
	m.logger.Error("❌ %v", failure)
	if m.deps.Metrics != nil {
		m.deps.Metrics.WorkerFailed(name)
	}
	m.update(name, func(s *workerState) {
		s.status.State = StateFailed
		s.status.Error = err.Error()
	})
	m.mu.Lock()
	m.failures = append(m.failures, failure)
	m.mu.Unlock()
}

// runGuarded runs the camera on the current goroutine and turns a panic into an error.
func (m *Manager) runGuarded(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return m.RunCamera(ctx, name)
}

// RunCamera builds one worker with its own source, regions and persistence
// handle and runs it until its stream ends or ctx is cancelled. extra observers
// receive the records in addition to the process-level ones.
func (m *Manager) RunCamera(ctx context.Context, name string, extra ...camera.Observer) error {
	camCfg, ok := m.cfg.Camera(name)
	if !ok {
		return fmt.Errorf("camera %q is not configured", name)
	}
	log := m.logger.Named(name)

	regions, err := m.deps.Regions.Load(name)
	if err != nil {
		log.Warning("%v - no objects will be counted until regions are set up", err)
		regions = model.RegionMap{}
	}
	cam := model.CameraConfig{Name: camCfg.Name, SourcePath: camCfg.SourcePath, Regions: regions}.Clone()

	source, err := m.deps.OpenSource(ctx, cam)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := m.deps.OpenSink(ctx, cam)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Error("Failed to close storage: %v", err)
		}
	}()

	observers := make([]camera.Observer, 0, len(m.deps.Observers)+len(extra))
	observers = append(observers, m.deps.Observers...)
	observers = append(observers, extra...)

	worker := camera.NewWorker(camera.Options{
		Camera:        cam,
		RunID:         m.deps.RunID,
		Names:         m.cfg.Classes,
		Interval:      m.cfg.Interval(),
		ConfThreshold: m.cfg.System.ConfThreshold,
		FrameSkip:     m.cfg.System.FrameSkip,
		FinalFlush:    m.cfg.System.FlushOnExit,
		Clock:         m.deps.Clock,
		Logger:        log,
	}, source, sink, observers...)
	m.update(name, func(s *workerState) { s.worker = worker })

	return worker.Run(ctx)
}

func (m *Manager) update(name string, fn func(*workerState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.workers[name]
	if !ok {
		s = &workerState{status: WorkerStatus{Camera: name}}
		m.workers[name] = s
	}
	fn(s)
}

// Status returns a snapshot of every configured camera, in configuration order.
func (m *Manager) Status() []WorkerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]WorkerStatus, 0, len(m.cfg.Cameras))
	for _, cam := range m.cfg.Cameras {
		s, ok := m.workers[cam.Name]
		if !ok {
			continue
		}
		status := s.status
		if s.worker != nil {
			status.Stats = s.worker.Stats()
			status.Totals = make(map[int]int)
			for class, total := range s.worker.Totals() {
				status.Totals[int(class)] = total
			}
		}
		out = append(out, status)
	}
	return out
}
