// ABOUTME: Shared setup for CLI commands: config, logging, credential store, and client
// ABOUTME: Starts the client's event loop in the background and tears it down on close

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/2389/anonchat/internal/client"
	"github.com/2389/anonchat/internal/config"
	"github.com/2389/anonchat/internal/logging"
	"github.com/2389/anonchat/internal/session"
	"github.com/2389/anonchat/internal/store"
)

// app is a running client plus everything it was built from.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.SQLiteStore
	client *client.Client

	cancel context.CancelFunc
	done   chan error
}

// loadConfig resolves the config file and applies command line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Resolve(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flags.server != "" {
		cfg.Server.URL = flags.server
		if os.Getenv("ANONCHAT_WS_URL") == "" {
			cfg.Server.WSURL = ""
		}
	}
	if flags.dataPath != "" {
		cfg.Storage.Path = flags.dataPath
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// openApp builds the client and starts its loop. Logs go to stderr so they
// never interleave with command output on stdout.
func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	c, err := client.New(client.Options{
		Config: cfg,
		Store:  st,
		Logger: logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		client: c,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		a.done <- c.Run(runCtx)
	}()
	return a, nil
}

// close stops the client and closes the store.
func (a *app) close() {
	a.cancel()
	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("client did not stop in time")
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing credential store", "error", err)
	}
}

// requireSession waits for the restored session and fails unless it is
// authenticated.
func (a *app) requireSession(ctx context.Context) (session.State, error) {
	st, err := a.client.AwaitSession(ctx)
	if err != nil {
		return st, err
	}
	if st.Status != session.Authenticated {
		return st, errNotLoggedIn
	}
	return st, nil
}

var errNotLoggedIn = errors.New("not logged in (run 'anonchat login' first)")

// withApp runs fn against a started app and always tears it down.
func withApp(ctx context.Context, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
