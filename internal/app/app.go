package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/metrics"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/route"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/camera"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/storage"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp wires the counter for the parent process. args are passed unchanged to
// worker processes in isolated-process mode.
func NewApp(cfg *config.Config, args []string) (*App, error) {
	log, err := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	hub := websocket.NewHubService(log)
	mng := service.NewManager(cfg, service.Dependencies{
		Observers: []camera.Observer{m, hub},
		Metrics:   m,
		Args:      args,
	}, log)

	return &App{
		config:     cfg,
		logger:     log,
		metrics:    m,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run starts every camera and, when configured, the HTTP server. It returns
// when all cameras have ended or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()

	fmt.Printf("🚀 ROI Object Counter\n")
	fmt.Printf("📹 Cameras: %d (%s)\n", len(a.config.Cameras), a.config.Mode)
	fmt.Printf("⏱️  Interval: %v\n", a.config.Interval())
	fmt.Printf("💾 Database: %s\n", a.config.Database.Driver)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hubService.Run(hubCtx)

	var server *http.Server
	if a.config.System.HTTPAddr != "" {
		server = &http.Server{
			Addr:    a.config.System.HTTPAddr,
			Handler: route.SetupRoutes(a.manager, a.hubService, a.metrics, a.logger),
		}
		go func() {
			fmt.Printf("📍 URL: http://%s\n", a.config.System.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server error: %v", err)
			}
		}()
	}

	err := a.manager.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("HTTP server shutdown: %v", err)
		}
	}

	a.summary()
	return err
}

// summary logs the stored totals per camera.
func (a *App) summary() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	repo, err := storage.OpenSQL(ctx, a.config.Database)
	if err != nil {
		a.logger.Warning("Summary unavailable: %v", err)
		return
	}
	defer repo.Close()

	for _, cam := range a.config.Cameras {
		sums, err := repo.SumByClass(ctx, cam.Name)
		if err != nil {
			a.logger.Warning("Summary for %s unavailable: %v", cam.Name, err)
			continue
		}
		for class, total := range sums {
			a.logger.Info("📊 %s - %s: %d", cam.Name, a.config.Classes.Name(class), total)
		}
	}
}

// RunWorker serves a single camera inside a worker process. Records go to
// stdout for the parent to relay; logs go to stderr.
func RunWorker(ctx context.Context, cfg *config.Config, cameraName string) error {
	log := logger.NewConsole(os.Stderr, cfg.Log.Level)

	mng := service.NewManager(cfg, service.Dependencies{
		RunID: os.Getenv(service.WorkerRunIDEnv),
	}, log)
	return mng.RunCamera(ctx, cameraName, service.NewRecordWriter(os.Stdout, log))
}
