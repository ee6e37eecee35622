package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Open returns the detection stream for a camera. With a tracker command the
// command is started with sourcePath appended as its last argument and its
// stdout is read as the stream. Without one, sourcePath must name a JSON-lines
// file, or "-" for stdin.
func Open(ctx context.Context, sourcePath string, trackerCommand []string) (Source, error) {
	if len(trackerCommand) > 0 {
		return openCommand(ctx, sourcePath, trackerCommand)
	}
	if sourcePath == "-" {
		return NewReaderSource("stdin", io.NopCloser(os.Stdin)), nil
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, &Error{Source: sourcePath, Op: "open", Err: err}
	}
	return NewReaderSource(sourcePath, file), nil
}

func openCommand(ctx context.Context, sourcePath string, command []string) (Source, error) {
	args := append(append([]string(nil), command[1:]...), sourcePath)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Error{Source: sourcePath, Op: "open", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &Error{Source: sourcePath, Op: "start tracker", Err: err}
	}

	var (
		waitOnce sync.Once
		waitErr  error
	)
	wait := func() error {
		waitOnce.Do(func() { waitErr = cmd.Wait() })
		return waitErr
	}

	s := NewReaderSource(sourcePath, stdout)
	s.onEOF = func() error {
		if err := wait(); err != nil {
			return fmt.Errorf("tracker %s: %w", command[0], err)
		}
		return nil
	}
	s.onClose = func() error {
		if cmd.ProcessState == nil {
			// still running: the worker is stopping before the stream ended
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return err
			}
		}
		wait()
		return nil
	}
	return s, nil
}
