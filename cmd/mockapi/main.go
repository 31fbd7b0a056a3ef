package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/d-madiou/to-meet-yours/internal/buildinfo"
	"github.com/d-madiou/to-meet-yours/internal/logging"
	"github.com/d-madiou/to-meet-yours/internal/mockapi"
	"github.com/d-madiou/to-meet-yours/internal/mockapi/config"
)

func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	logger := logging.NewSlogJSON(os.Stdout, slog.LevelInfo)
	cfg := config.LoadConfig()

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	initSignalHandler(cancelFunc)

	srv := mockapi.NewServer(cfg, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error(ctx, "mock api stopped", "error", err)
		os.Exit(1)
	}
}
