// Package app provides the application context and dependency management
// for the vnetctl CLI. It centralizes configuration, dependency injection,
// and lifecycle management for all commands.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nebulaops/vnetctl"
	"github.com/nebulaops/vnetctl/pkg/errors"
)

// App represents the vnetctl application with all its dependencies.
// It provides a centralized place for configuration, logging, and
// the manager instance, following the dependency injection pattern.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Manager instance (lazy-initialized, singleton)
	mu      sync.RWMutex
	manager vnetctl.Manager
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Manager returns the manager instance, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Manager() (vnetctl.Manager, error) {
	a.mu.RLock()
	if a.manager != nil {
		m := a.manager
		a.mu.RUnlock()
		return m, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.manager != nil {
		return a.manager, nil
	}

	m, err := vnetctl.New(a.buildManagerOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "manager", "", err)
	}

	a.manager = m
	return m, nil
}

// ManagerWithOptions returns a new manager instance with custom options
// layered over the app configuration. This is useful for commands that
// need specific settings different from the default app instance
// (e.g. apply with --check).
func (a *App) ManagerWithOptions(opts ...vnetctl.Option) (vnetctl.Manager, error) {
	m, err := vnetctl.New(append(a.buildManagerOptions(), opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "manager", "with custom options", err)
	}
	return m, nil
}

// Shutdown performs graceful shutdown of the application.
// It closes the frontend connection if one was opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	m := a.manager
	a.mu.RUnlock()

	if m != nil {
		if err := m.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close manager during shutdown")
			return err
		}
	}

	return nil
}

// buildManagerOptions constructs manager options from the app configuration.
func (a *App) buildManagerOptions() []vnetctl.Option {
	opts := []vnetctl.Option{
		vnetctl.WithLogger(a.logger),
	}

	if a.config.Endpoint != "" {
		opts = append(opts, vnetctl.WithEndpoint(a.config.Endpoint))
	}
	if a.config.Credential != "" {
		opts = append(opts, vnetctl.WithCredential(a.config.Credential))
	}
	if a.config.Timeout > 0 {
		opts = append(opts, vnetctl.WithTimeout(a.config.Timeout))
	}
	if a.config.Insecure {
		opts = append(opts, vnetctl.WithInsecure(true))
	}

	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithManager sets a custom manager instance (useful for testing).
func WithManager(m vnetctl.Manager) Option {
	return func(a *App) error {
		a.manager = m
		return nil
	}
}
