// Package selector collects counting regions by letting an operator draw them
// on the first frame of each camera.
package selector

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
)

// Interactive is a region.Provider that opens a window per class and asks for
// a rectangle. ENTER confirms a selection, ESC or an empty selection skips the class.
type Interactive struct {
	Sources map[string]string // camera name -> video file or stream URL
	Classes model.ClassNames
	Logger  *logger.Logger
}

var _ region.Provider = (*Interactive)(nil)

// Load grabs the first frame of the camera and returns the drawn regions.
func (s *Interactive) Load(camera string) (model.RegionMap, error) {
	source, ok := s.Sources[camera]
	if !ok {
		return nil, fmt.Errorf("no source configured for camera %s", camera)
	}

	frame, err := firstFrame(source)
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	ids := make([]model.ClassID, 0, len(s.Classes))
	for id := range s.Classes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.Logger.Info("Select ROI for configured classes (Press ENTER to confirm, ESC to skip)")
	regions := make(model.RegionMap)
	for _, id := range ids {
		name := s.Classes.Name(id)
		title := fmt.Sprintf("ROI for %s", name)

		window := gocv.NewWindow(title)
		rect := window.SelectROI(frame)
		window.Close()

		reg, ok := region.FromRect(id, rect)
		if !ok {
			s.Logger.Warning("Skipped class '%s' (no ROI selected)", name)
			continue
		}
		regions[id] = reg
		s.Logger.Info("ROI for class '%s' (ID %d): %v", name, id, rect)
	}
	return regions, nil
}

func firstFrame(source string) (gocv.Mat, error) {
	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	if ok := capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, fmt.Errorf("failed to read frame for ROI selection from %s", source)
	}
	return frame, nil
}
