// Package guard wires application dependencies.
package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Application holds the pipeline and its background workers.
type Application struct {
	Config        *Config
	Guard         *Guard
	Sweeper       *Sweeper
	httpTransport *HTTPTransport
	logger        Logger
	ready         atomic.Bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewApplication validates configuration and prepares the application.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.EnableAdminAuth && cfg.AdminToken == "" {
		return nil, errors.New("admin token is required when admin auth is enabled")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &StdLogger{}
		cfg.Logger = logger
	}

	g, err := NewGuard(cfg)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:  cfg,
		Guard:   g,
		Sweeper: NewSweeper(g, cfg.SweepInterval, logger),
		logger:  logger,
	}

	if cfg.EnableHTTP {
		transport, err := NewHTTPTransport(g, app.Ready)
		if err != nil {
			return nil, err
		}
		app.httpTransport = transport
	}
	return app, nil
}

// Start begins background work for the application.
func (app *Application) Start(ctx context.Context) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		_ = app.Sweeper.Start(ctx)
	}()

	if app.httpTransport != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := app.httpTransport.Start(); err != nil {
				app.logger.Error("http transport stopped", map[string]any{"error": err.Error()})
			}
		}()
	}

	app.ready.Store(true)
	app.logger.Info("portalguard started", map[string]any{
		"listenAddr":   app.Config.ListenAddr,
		"generalLimit": app.Config.GeneralLimit,
		"authLimit":    app.Config.AuthLimit,
	})
	return nil
}

// Shutdown stops background work for the application.
func (app *Application) Shutdown(ctx context.Context) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if app.cancel != nil {
		app.cancel()
	}
	app.ready.Store(false)
	if app.httpTransport != nil {
		_ = app.httpTransport.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the application has completed startup.
func (app *Application) Ready() bool {
	if app == nil {
		return false
	}
	return app.ready.Load()
}
