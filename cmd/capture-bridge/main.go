package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"

	"capture-bridge/internal/application"
	"capture-bridge/internal/infrastructure/camera"
	"capture-bridge/internal/infrastructure/logger"
	"capture-bridge/internal/infrastructure/streaming"
	"capture-bridge/internal/infrastructure/texture"
	"capture-bridge/internal/platform/config"
	"capture-bridge/internal/platform/metrics"
	"capture-bridge/internal/presentation/cli"
	"capture-bridge/internal/presentation/rpc"
)

func main() {
	_ = config.Load()

	cfg, err := cli.ParseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "capture-bridge:", err)
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	hub := streaming.NewHub(log, 0)
	defer hub.Close()
	textures := texture.NewRegistry(hub.TextureFrameAvailable)

	manager := camera.NewMediaDevicesManager(log)
	watcher := manager.Watcher(cfg.PollInterval)
	go watcher.Run(ctx)

	controller := application.NewCaptureController(manager, manager, log,
		application.WithWatcher(watcher),
		application.WithDiagnostics(application.MultiDiagnostics(application.LoggingDiagnostics(log), met, hub)),
		application.WithQueueSizes(cfg.VideoQueue, cfg.AudioQueue),
	)
	h := rpc.NewHandler(controller, textures, hub, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSources(len(controller.Sources())) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	if err := cli.NewCLI(controller, log, cfg, os.Stdout).Run(ctx, srv); err != nil {
		log.Error("capture bridge failed", "error", err)
		os.Exit(1)
	}
}
