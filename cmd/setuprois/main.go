package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/region/selector"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	console := logger.NewConsole(os.Stdout, cfg.Log.Level)

	files := region.NewFileProvider(cfg.System.RegionDir, cfg.System.ModelPath)
	sources := make(map[string]string, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		sources[cam.Name] = cam.PreviewPath
	}
	interactive := &selector.Interactive{Sources: sources, Classes: cfg.Classes, Logger: console}

	stdin := bufio.NewReader(os.Stdin)
	for _, cam := range cfg.Cameras {
		if files.Exists(cam.Name) && !askRedraw(stdin, cam.Name) {
			fmt.Printf("Keeping existing ROIs for %s at %s\n", cam.Name, files.Path(cam.Name))
			continue
		}

		fmt.Printf("\n--- Setting up ROIs for camera: %s ---\n", cam.Name)
		regions, err := interactive.Load(cam.Name)
		if err != nil {
			log.Fatalf("ROI selection for %s failed: %v", cam.Name, err)
		}

		saved, err := files.Save(cam.Name, regions)
		if err != nil {
			log.Fatalf("Failed to save ROIs for %s: %v", cam.Name, err)
		}
		if !saved {
			fmt.Printf("No ROIs selected for %s, nothing saved.\n", cam.Name)
			continue
		}
		fmt.Printf("✅ ROIs saved for %s at %s\n", cam.Name, files.Path(cam.Name))
	}
}

func askRedraw(r *bufio.Reader, camera string) bool {
	fmt.Printf("ROI file exists for %s. Do you want to redraw? (y/n): ", camera)
	answer, _ := r.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
