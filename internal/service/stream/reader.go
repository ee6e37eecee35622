package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

const maxLineSize = 4 * 1024 * 1024

type lineResult struct {
	line []byte
	err  error
}

// ReaderSource decodes JSON lines from a reader. Reading happens on its own
// goroutine so Next can return as soon as ctx is cancelled.
type ReaderSource struct {
	name  string
	rc    io.ReadCloser
	lines chan lineResult
	done  chan struct{}
	seq   int64

	// onEOF runs once when the reader is exhausted; a non-nil error replaces io.EOF.
	onEOF    func() error
	eofOnce  sync.Once
	eofErr   error
	onClose  func() error
	closeErr error
	closed   sync.Once
}

// NewReaderSource reads batches from rc until EOF.
func NewReaderSource(name string, rc io.ReadCloser) *ReaderSource {
	s := &ReaderSource{
		name:  name,
		rc:    rc,
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
	go s.scan()
	return s
}

func (s *ReaderSource) scan() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case s.lines <- lineResult{line: append([]byte(nil), line...)}:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case s.lines <- lineResult{err: err}:
		case <-s.done:
		}
	}
}

// Next returns the next decoded batch. Frames without a "frame" field are
// numbered by their position in the stream, starting at 1.
func (s *ReaderSource) Next(ctx context.Context) (model.Batch, error) {
	select {
	case <-ctx.Done():
		return model.Batch{}, ctx.Err()
	case res, ok := <-s.lines:
		if !ok {
			return model.Batch{}, s.finish()
		}
		if res.err != nil {
			return model.Batch{}, &Error{Source: s.name, Op: "read", Err: res.err}
		}
		s.seq++
		batch, err := decodeLine(res.line)
		if errors.Is(err, errNoFrame) {
			batch.Frame = s.seq
			err = nil
		}
		if err != nil {
			return model.Batch{}, &Error{Source: s.name, Op: "decode", Err: fmt.Errorf("line %d: %w", s.seq, err)}
		}
		return batch, nil
	}
}

func (s *ReaderSource) finish() error {
	s.eofOnce.Do(func() {
		if s.onEOF != nil {
			if err := s.onEOF(); err != nil {
				s.eofErr = &Error{Source: s.name, Op: "read", Err: err}
			}
		}
	})
	if s.eofErr != nil {
		return s.eofErr
	}
	return io.EOF
}

// Close stops the reader goroutine and releases the underlying stream.
func (s *ReaderSource) Close() error {
	s.closed.Do(func() {
		close(s.done)
		s.closeErr = s.rc.Close()
		if s.onClose != nil {
			if err := s.onClose(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
