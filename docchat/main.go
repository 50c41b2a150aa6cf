package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docchat/docchat/app"
	"docchat/docchat/config"
	"docchat/docchat/routes"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logging.InitLogger(cfg.LogDir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if err := routes.RunBridge(ctx, a); err != nil {
		logging.ErrorLogger.Error("bridge stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}
