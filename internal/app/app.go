// Package app wires configuration into a runnable API server.
package app

import (
	"context"
	"fmt"

	"designforge/internal/config"
	"designforge/internal/logging"
	"designforge/internal/server"
)

type App struct {
	*Components
	server *server.Server
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	c, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mux := server.NewMux(server.NewHandler(c.Designs, logger), logger)
	return &App{
		Components: c,
		server:     server.New(cfg.Port, mux, logger),
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown drains HTTP connections, then closes the components.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}
