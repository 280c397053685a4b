package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"designforge/internal/app"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		slog.Error("failed to initialize app", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		if err := a.Start(); err != nil {
			a.Log.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		a.Log.Error("server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	a.Log.Info("server exiting")
}
