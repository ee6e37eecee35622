package region

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

func TestFileProvider_RoundTrip(t *testing.T) {
	provider := &FileProvider{Dir: t.TempDir()}

	regions := model.RegionMap{
		0: {ClassID: 0, X: 10, Y: 20, Width: 30, Height: 40},
		2: {ClassID: 2, X: 0, Y: 0, Width: 100, Height: 100},
	}

	saved, err := provider.Save("cam1", regions)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !saved {
		t.Fatal("Expected regions to be saved")
	}

	loaded, err := provider.Load("cam1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(regions, loaded); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileProvider_RoundTripRandom(t *testing.T) {
	provider := &FileProvider{Dir: t.TempDir()}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		regions := make(model.RegionMap)
		for j := 0; j < 1+rng.Intn(6); j++ {
			id := model.ClassID(rng.Intn(80))
			regions[id] = model.Region{
				ClassID: id,
				X:       rng.Intn(1920),
				Y:       rng.Intn(1080),
				Width:   rng.Intn(500),
				Height:  rng.Intn(500),
			}
		}

		if _, err := provider.Save("cam", regions); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := provider.Load("cam")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if diff := cmp.Diff(regions, loaded); diff != "" {
			t.Fatalf("Iteration %d: round trip mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestFileProvider_SaveEmptyIsNoop(t *testing.T) {
	provider := &FileProvider{Dir: t.TempDir()}

	saved, err := provider.Save("cam1", model.RegionMap{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved {
		t.Error("Empty mapping should not be saved")
	}
	if provider.Exists("cam1") {
		t.Error("No region file should exist after saving an empty mapping")
	}
}

func TestFileProvider_MissingFile(t *testing.T) {
	provider := &FileProvider{Dir: t.TempDir()}

	regions, err := provider.Load("nowhere")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %T", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if regions == nil || len(regions) != 0 {
		t.Errorf("Expected empty fallback mapping, got %v", regions)
	}
}

func TestFileProvider_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"bad key", `{"car": [1, 2, 3, 4]}`},
		{"short tuple", `{"1": [1, 2, 3]}`},
		{"negative", `{"1": [-1, 2, 3, 4]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "cam1.json"), []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			provider := &FileProvider{Dir: dir}
			regions, err := provider.Load("cam1")

			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %v", err)
			}
			if len(regions) != 0 {
				t.Errorf("Expected empty fallback mapping, got %v", regions)
			}
		})
	}
}

func TestNewFileProvider_UsesModelName(t *testing.T) {
	provider := NewFileProvider("rois", filepath.Join("models", "cylinder_v8.pt"))

	want := filepath.Join("rois", "cylinder_v8", "cam2.json")
	if got := provider.Path("cam2"); got != want {
		t.Errorf("Expected path %s, got %s", want, got)
	}
}

func TestStaticProvider_ReturnsCopy(t *testing.T) {
	provider := StaticProvider{
		"cam1": {1: {ClassID: 1, Width: 5, Height: 5}},
	}

	regions, err := provider.Load("cam1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	delete(regions, 1)

	again, _ := provider.Load("cam1")
	if len(again) != 1 {
		t.Error("Mutating a loaded mapping must not affect the provider")
	}

	empty, _ := provider.Load("cam9")
	if len(empty) != 0 {
		t.Errorf("Expected empty mapping for unknown camera, got %v", empty)
	}
}
