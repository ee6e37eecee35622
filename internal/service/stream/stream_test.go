package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

const sample = `{"frame":1,"timestamp":1718000000.5,"detections":[{"class":2,"id":7,"box":[10,20,30,40],"conf":0.91}]}

{"frame":2,"detections":[{"class":0,"id":null,"box":[1.9,2,3,4]},{"class":1,"box":[0,0,5,5],"conf":0.2}]}
{"detections":[]}
`

func TestReaderSource_Decode(t *testing.T) {
	src := NewReaderSource("sample", io.NopCloser(strings.NewReader(sample)))
	defer src.Close()
	ctx := context.Background()

	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if first.Frame != 1 {
		t.Errorf("Expected frame 1, got %d", first.Frame)
	}
	if !first.Timestamp.Equal(time.Unix(1718000000, 500000000)) {
		t.Errorf("Unexpected timestamp %v", first.Timestamp)
	}
	id := int64(7)
	want := model.Detection{
		ClassID:    2,
		TrackID:    &id,
		Box:        image.Rect(10, 20, 30, 40),
		Confidence: 0.91,
		Timestamp:  first.Timestamp,
	}
	if diff := cmp.Diff([]model.Detection{want}, first.Detections); diff != "" {
		t.Errorf("Detections mismatch (-want +got):\n%s", diff)
	}

	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(second.Detections) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(second.Detections))
	}
	if second.Detections[0].Tracked() || second.Detections[1].Tracked() {
		t.Error("Detections without id must be untracked")
	}
	if second.Detections[0].Box.Min.X != 1 {
		t.Errorf("Expected truncated coordinate 1, got %d", second.Detections[0].Box.Min.X)
	}
	if second.Detections[0].Confidence != 1 {
		t.Errorf("Expected default confidence 1, got %v", second.Detections[0].Confidence)
	}

	third, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if third.Frame != 3 {
		t.Errorf("Expected positional frame number 3, got %d", third.Frame)
	}

	if _, err := src.Next(ctx); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestReaderSource_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `frame 1`},
		{"array root", `[1,2]`},
		{"short box", `{"detections":[{"class":1,"box":[1,2,3]}]}`},
		{"string class", `{"detections":[{"class":"car","box":[1,2,3,4]}]}`},
		{"detections object", `{"detections":{"class":1}}`},
		{"string id", `{"detections":[{"class":1,"id":"a","box":[1,2,3,4]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewReaderSource("bad", io.NopCloser(strings.NewReader(tt.line+"\n")))
			defer src.Close()

			_, err := src.Next(context.Background())
			var streamErr *Error
			if !errors.As(err, &streamErr) {
				t.Fatalf("Expected *stream.Error, got %v", err)
			}
			if streamErr.Op != "decode" {
				t.Errorf("Expected decode op, got %s", streamErr.Op)
			}
		})
	}
}

func TestReaderSource_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewReaderSource("pipe", pr)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.Next(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

func TestChannelSource(t *testing.T) {
	ch := make(chan model.Batch, 2)
	ch <- model.Batch{Frame: 1}
	ch <- model.Batch{Frame: 2}
	close(ch)

	src := NewChannelSource(ch)
	ctx := context.Background()
	for want := int64(1); want <= 2; want++ {
		batch, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if batch.Frame != want {
			t.Errorf("Expected frame %d, got %d", want, batch.Frame)
		}
	}
	if _, err := src.Next(ctx); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cam.jsonl")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatalf("Failed to write stream: %v", err)
	}

	src, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	frames := 0
	for {
		_, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		frames++
	}
	if frames != 3 {
		t.Errorf("Expected 3 frames, got %d", frames)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), nil)
	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Op != "open" {
		t.Fatalf("Expected open *stream.Error, got %v", err)
	}
}

// trackerCommand re-runs the test binary as a fake tracker process.
func trackerCommand(t *testing.T) []string {
	t.Setenv("STREAM_WANT_HELPER_PROCESS", "1")
	return []string{os.Args[0], "-test.run=TestHelperTracker", "--"}
}

func TestOpen_Command(t *testing.T) {
	src, err := Open(context.Background(), "rtsp://gate", trackerCommand(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	batch, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if batch.Frame != 1 || len(batch.Detections) != 1 {
		t.Errorf("Unexpected batch %+v", batch)
	}
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestOpen_CommandFailure(t *testing.T) {
	src, err := Open(context.Background(), "fail", trackerCommand(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	_, err = src.Next(context.Background())
	var streamErr *Error
	if !errors.As(err, &streamErr) {
		t.Fatalf("Expected *stream.Error for failing tracker, got %v", err)
	}
}

func TestHelperTracker(t *testing.T) {
	if os.Getenv("STREAM_WANT_HELPER_PROCESS") != "1" {
		return
	}
	source := os.Args[len(os.Args)-1]
	if source == "fail" {
		fmt.Fprintln(os.Stderr, "cannot open source")
		os.Exit(3)
	}
	fmt.Println(`{"frame":1,"detections":[{"class":0,"id":1,"box":[0,0,2,2]}]}`)
	os.Exit(0)
}
