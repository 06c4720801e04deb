// Package presets assembles ready-to-use video stores for common
// situations on top of the config package.
package presets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/simple-video/pkg/simplevideo/config"
)

// NewDevelopment builds a store for local development: a SQLite catalog and
// filesystem content, both below one data directory (./dev-data by default),
// so uploads survive restarts.
//
// The returned cleanup closes the store and removes the data directory.
//
//	stack, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (*config.Stack, func(), error) {
	cfg := &devConfig{
		dataDir: "./dev-data",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(cfg.dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	serverCfg, err := config.Load(
		config.WithEnvironment("development"),
		config.WithDatabase(config.DatabaseSQLite, filepath.Join(cfg.dataDir, "catalog.db")),
		config.WithFilesystemContent(filepath.Join(cfg.dataDir, "content")),
	)
	if err != nil {
		return nil, nil, err
	}

	stack, err := serverCfg.Build(context.Background(), cfg.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build development store: %w", err)
	}

	cleanup := func() {
		stack.Close()
		os.RemoveAll(cfg.dataDir)
	}
	return stack, cleanup, nil
}

// NewTesting builds an isolated in-memory store for a single test. Event
// logging is off and the store is closed by t.Cleanup.
func NewTesting(t testing.TB, opts ...TestingOption) *config.Stack {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []config.Option{
		config.WithEnvironment("testing"),
		config.WithEventLogging(false),
	}
	if cfg.maxRetries > 0 {
		options = append(options, config.WithMaxVersionRetries(cfg.maxRetries))
	}

	serverCfg, err := config.Load(options...)
	if err != nil {
		t.Fatalf("failed to load test configuration: %v", err)
	}

	stack, err := serverCfg.Build(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to build test store: %v", err)
	}
	t.Cleanup(stack.Close)

	return stack
}

// NewProduction builds a store from the environment (see config.WithEnv)
// and refuses in-memory backends.
func NewProduction(ctx context.Context, opts ...ProductionOption) (*config.Stack, error) {
	cfg := &prodConfig{
		envPrefix: "",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	serverCfg, err := config.Load(config.WithEnvironment("production"), config.WithEnv(cfg.envPrefix))
	if err != nil {
		return nil, err
	}
	if serverCfg.DatabaseType == config.DatabaseMemory {
		return nil, fmt.Errorf("production preset requires a persistent catalog (set %sDATABASE_URL)", cfg.envPrefix)
	}
	if serverCfg.Content.Type == config.ContentMemory {
		return nil, fmt.Errorf("production preset requires persistent content (set %sCONTENT_URL to file:// or s3://)", cfg.envPrefix)
	}

	return serverCfg.Build(ctx, cfg.logger)
}

type devConfig struct {
	dataDir string
	logger  *slog.Logger
}

type testConfig struct {
	maxRetries int
}

type prodConfig struct {
	envPrefix string
	logger    *slog.Logger
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevDataDir sets the development data directory
func WithDevDataDir(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.dataDir = dir
	}
}

// WithDevLogger sets the logger used by the development store
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestMaxVersionRetries raises the retry bound for contention tests
func WithTestMaxVersionRetries(n int) TestingOption {
	return func(cfg *testConfig) {
		cfg.maxRetries = n
	}
}

// ProductionOption is a functional option for NewProduction
type ProductionOption func(*prodConfig)

// WithEnvPrefix reads variables as prefix+NAME
func WithEnvPrefix(prefix string) ProductionOption {
	return func(cfg *prodConfig) {
		cfg.envPrefix = prefix
	}
}

// WithProductionLogger sets the logger used by the production store
func WithProductionLogger(logger *slog.Logger) ProductionOption {
	return func(cfg *prodConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
