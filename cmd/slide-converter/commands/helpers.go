package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spherical/slide-converter/internal/config"
	"github.com/spherical/slide-converter/internal/observability"
)

// loadConfig reads the config file named by --config (or CONFIG_PATH) and builds a logger.
func loadConfig(out io.Writer, format string) (*config.Config, *observability.Logger, error) {
	path := cfgFile
	if path == "" {
		path = envOr("CONFIG_PATH", "")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}
	if format == "" {
		format = cfg.Observability.LogFormat
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      format,
		Output:      out,
		ServiceName: cfg.Observability.ServiceName,
	})
	return cfg, logger, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
