package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// ErrNotFound is wrapped by LoadError when a camera has no persisted regions.
var ErrNotFound = errors.New("region file not found")

// LoadError reports a missing or unreadable region mapping. Callers fall back to an
// empty mapping: the camera keeps streaming but nothing is counted.
type LoadError struct {
	Camera string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load regions for camera %s from %s: %v", e.Camera, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Provider supplies the region mapping for a camera.
type Provider interface {
	Load(camera string) (model.RegionMap, error)
}

// StaticProvider serves mappings supplied in code.
type StaticProvider map[string]model.RegionMap

// Load returns a copy of the camera's mapping, or an empty one.
func (p StaticProvider) Load(camera string) (model.RegionMap, error) {
	return p[camera].Clone(), nil
}

// FileProvider reads and writes one JSON file per camera inside Dir.
type FileProvider struct {
	Dir string
}

// NewFileProvider stores region files under <baseDir>/<model name>, the model name
// being the model file name without extension.
func NewFileProvider(baseDir, modelPath string) *FileProvider {
	name := filepath.Base(modelPath)
	name = name[:len(name)-len(filepath.Ext(name))]
	return &FileProvider{Dir: filepath.Join(baseDir, name)}
}

// Path returns the region file for a camera.
func (p *FileProvider) Path(camera string) string {
	return filepath.Join(p.Dir, camera+".json")
}

// Exists reports whether a region file has been saved for the camera.
func (p *FileProvider) Exists(camera string) bool {
	_, err := os.Stat(p.Path(camera))
	return err == nil
}

// Load reads {"<class_id>": [x, y, w, h]} for the camera.
func (p *FileProvider) Load(camera string) (model.RegionMap, error) {
	path := p.Path(camera)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RegionMap{}, &LoadError{Camera: camera, Path: path, Err: ErrNotFound}
		}
		return model.RegionMap{}, &LoadError{Camera: camera, Path: path, Err: err}
	}

	regions, err := Decode(data)
	if err != nil {
		return model.RegionMap{}, &LoadError{Camera: camera, Path: path, Err: err}
	}
	return regions, nil
}

// Save writes the mapping for a camera. An empty mapping is not written and reports false.
func (p *FileProvider) Save(camera string, regions model.RegionMap) (bool, error) {
	if len(regions) == 0 {
		return false, nil
	}

	data, err := Encode(regions)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create region directory: %w", err)
	}
	if err := os.WriteFile(p.Path(camera), data, 0644); err != nil {
		return false, fmt.Errorf("failed to write region file: %w", err)
	}
	return true, nil
}

// Decode parses the persisted region format and validates every entry.
func Decode(data []byte) (model.RegionMap, error) {
	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid region json: %w", err)
	}

	regions := make(model.RegionMap, len(raw))
	for key, box := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid class id %q: %w", key, err)
		}
		if len(box) != 4 {
			return nil, fmt.Errorf("region for class %d must have 4 values, got %d", id, len(box))
		}

		reg := model.Region{ClassID: model.ClassID(id), X: box[0], Y: box[1], Width: box[2], Height: box[3]}
		if err := reg.Validate(); err != nil {
			return nil, err
		}
		regions[reg.ClassID] = reg
	}
	return regions, nil
}

// Encode renders a mapping in the persisted region format.
func Encode(regions model.RegionMap) ([]byte, error) {
	raw := make(map[string][4]int, len(regions))
	for id, reg := range regions {
		if err := reg.Validate(); err != nil {
			return nil, err
		}
		raw[strconv.Itoa(int(id))] = [4]int{reg.X, reg.Y, reg.Width, reg.Height}
	}
	return json.MarshalIndent(raw, "", "  ")
}
