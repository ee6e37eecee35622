package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// Environment passed to worker processes in isolated-process mode.
const (
	WorkerCameraEnv = "ROICOUNT_WORKER_CAMERA"
	WorkerRunIDEnv  = "ROICOUNT_RUN_ID"
)

// WorkerCamera returns the camera this process serves when it was started as
// an isolated worker.
func WorkerCamera() (string, bool) {
	name := os.Getenv(WorkerCameraEnv)
	return name, name != ""
}

// RecordWriter is the observer a worker process uses to hand its records to the
// parent: one JSON array per tick, one tick per line.
type RecordWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	log *logger.Logger
}

func NewRecordWriter(w io.Writer, log *logger.Logger) *RecordWriter {
	return &RecordWriter{enc: json.NewEncoder(w), log: log}
}

func (w *RecordWriter) Publish(records []model.AggregationRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(records); err != nil && w.log != nil {
		w.log.Error("Failed to relay records: %v", err)
	}
}

// runProcess re-executes the binary for one camera and relays its records to the
// process-level observers and its log lines to the manager's logger.
func (m *Manager) runProcess(ctx context.Context, name string) error {
	exe := m.deps.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
	}
	log := m.logger.Named(name)

	cmd := exec.Command(exe, m.deps.Args...)
	cmd.Env = append(os.Environ(),
		WorkerCameraEnv+"="+name,
		WorkerRunIDEnv+"="+m.deps.RunID,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker process: %w", err)
	}

	log.Info("Worker process spawned (pid %d)", cmd.Process.Pid)
	m.update(name, func(s *workerState) { s.status.PID = cmd.Process.Pid })

	var relays sync.WaitGroup
	relays.Add(2)
	go func() {
		defer relays.Done()
		m.relayRecords(name, stdout, log)
	}()
	go func() {
		defer relays.Done()
		relayLogs(stderr, log)
	}()

	// Wait only after both pipes are drained.
	exited := make(chan error, 1)
	go func() {
		relays.Wait()
		exited <- cmd.Wait()
	}()

	select {
	case err := <-exited:
		if err != nil {
			return fmt.Errorf("worker process: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Warning("Failed to signal worker process: %v", err)
	}
	timer := m.deps.Clock.Timer(m.deps.StopGrace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		log.Warning("Worker process did not stop within %v, killing it", m.deps.StopGrace)
		cmd.Process.Kill()
		<-exited
	}
	return nil
}

func (m *Manager) relayRecords(name string, r io.Reader, log *logger.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var records []model.AggregationRecord
		if err := json.Unmarshal(scanner.Bytes(), &records); err != nil {
			log.Warning("Unexpected worker output: %s", scanner.Text())
			continue
		}
		m.update(name, func(s *workerState) { s.status.Relayed += int64(len(records)) })
		for _, o := range m.deps.Observers {
			o.Publish(records)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("Failed to read worker output: %v", err)
	}
	// keep draining so the child never blocks on a full pipe
	io.Copy(io.Discard, r)
}

// relayLogs re-logs each line of a worker's stderr at the level the worker
// wrote it. Lines without a level marker, such as a panic trace, are warnings.
func relayLogs(r io.Reader, log *logger.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		level, msg, ok := logger.SplitLine(scanner.Text())
		if !ok {
			level = logger.LevelWarning
		}
		log.Log(level, "%s", msg)
	}
	io.Copy(io.Discard, r)
}
