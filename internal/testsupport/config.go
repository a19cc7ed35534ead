package testsupport

import (
	"path/filepath"
	"testing"

	"conveyor/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Server.APIBind = "127.0.0.1:0"
	cfg.Server.SocketPath = filepath.Join(base, "conveyord.sock")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithSourcePriority sets the consolidation source ordering on the test config.
func WithSourcePriority(sources ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Consolidation.SourcePriority = sources
	}
}

// WithAPIToken sets the HTTP bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Server.APIToken = token
	}
}
