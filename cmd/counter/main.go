package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/app"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if camera, ok := service.WorkerCamera(); ok {
		if err := app.RunWorker(ctx, cfg, camera); err != nil {
			log.Printf("Camera %s failed: %v", camera, err)
			os.Exit(1)
		}
		return
	}

	application, err := app.NewApp(cfg, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Printf("Finished with failed cameras: %v", err)
		os.Exit(1)
	}
}
