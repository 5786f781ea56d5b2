package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/park285/cheese-hopboard/internal/app"
	appcfg "github.com/park285/cheese-hopboard/internal/config"
	"github.com/park285/cheese-hopboard/internal/obslog"
	"github.com/park285/cheese-hopboard/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	deps, err := app.Build(cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("build_failed", zap.Error(err))
	}
	defer func() { _ = deps.Journal.Close() }()
	defer deps.Script.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := app.NewRuntime(deps, obslog.Named("runtime"))
	loopErr := make(chan error, 1)
	go func() { loopErr <- rt.Run(ctx) }()

	srv := server.New(rt, cfg.OriginAllowlist, obslog.Named("http"))
	if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("http_server_error", zap.Error(err))
		stop()
	}
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("frame_loop_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
