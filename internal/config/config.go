// Package config provides configuration loading for the slide converter.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the slide converter.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Tools         ToolsConfig         `yaml:"tools"`
	Transfer      TransferConfig      `yaml:"transfer"`
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// PipelineConfig holds conversion pipeline settings.
type PipelineConfig struct {
	Workers            int           `yaml:"workers"`
	DPI                int           `yaml:"dpi"`
	TaskTimeout        time.Duration `yaml:"task_timeout"`
	ToolTimeout        time.Duration `yaml:"tool_timeout"`
	FailFast           bool          `yaml:"fail_fast"`
	MaxConcurrentJobs  int           `yaml:"max_concurrent_jobs"`
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
}

// ToolsConfig selects and locates the page capabilities.
type ToolsConfig struct {
	Backend     string `yaml:"backend"`    // exec or fitz
	Normalizer  string `yaml:"normalizer"` // unoconv or soffice
	Unoconv     string `yaml:"unoconv"`
	Soffice     string `yaml:"soffice"`
	PDFInfo     string `yaml:"pdfinfo"`
	PDFSeparate string `yaml:"pdfseparate"`
	PDFToCairo  string `yaml:"pdftocairo"`
	PDFToText   string `yaml:"pdftotext"`
}

// TransferConfig holds outbound HTTP settings.
type TransferConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	CallbackMethod string        `yaml:"callback_method"`
}

// WorkspaceConfig holds job working directory settings.
type WorkspaceConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// StoreConfig holds job history settings.
type StoreConfig struct {
	Driver string        `yaml:"driver"` // memory, redis or sqlite
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
	SQLite SQLiteConfig  `yaml:"sqlite"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     15 * time.Minute,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:            10,
			DPI:                150,
			TaskTimeout:        2 * time.Minute,
			ToolTimeout:        10 * time.Minute,
			MaxConcurrentJobs:  4,
			MaxConcurrentTasks: 20,
		},
		Tools: ToolsConfig{
			Backend:     "exec",
			Normalizer:  "unoconv",
			Unoconv:     "unoconv",
			Soffice:     "soffice",
			PDFInfo:     "pdfinfo",
			PDFSeparate: "pdfseparate",
			PDFToCairo:  "pdftocairo",
			PDFToText:   "pdftotext",
		},
		Transfer: TransferConfig{
			Timeout:        60 * time.Second,
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			CallbackMethod: "GET",
		},
		Workspace: WorkspaceConfig{
			BaseDir: "tmp",
		},
		Store: StoreConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "slideconv:",
			},
			SQLite: SQLiteConfig{
				Path: "slide-converter.db",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "slide-converter",
		},
	}
}

// applyEnvOverrides applies SLIDECONV_* environment variables over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SLIDECONV_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SLIDECONV_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SLIDECONV_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("SLIDECONV_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("SLIDECONV_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.TaskTimeout = d
		}
	}
	if v := os.Getenv("SLIDECONV_FAIL_FAST"); v != "" {
		cfg.Pipeline.FailFast = v == "true" || v == "1"
	}
	if v := os.Getenv("SLIDECONV_TOOLS_BACKEND"); v != "" {
		cfg.Tools.Backend = v
	}
	if v := os.Getenv("SLIDECONV_NORMALIZER"); v != "" {
		cfg.Tools.Normalizer = v
	}
	if v := os.Getenv("SLIDECONV_CALLBACK_METHOD"); v != "" {
		cfg.Transfer.CallbackMethod = strings.ToUpper(v)
	}
	if v := os.Getenv("SLIDECONV_WORKSPACE_DIR"); v != "" {
		cfg.Workspace.BaseDir = v
	}
	if v := os.Getenv("SLIDECONV_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("SLIDECONV_SQLITE_PATH"); v != "" {
		cfg.Store.SQLite.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	if c.Pipeline.Workers <= 0 {
		errs = append(errs, "pipeline.workers must be positive")
	}
	if c.Pipeline.DPI <= 0 {
		errs = append(errs, "pipeline.dpi must be positive")
	}
	if c.Pipeline.MaxConcurrentJobs <= 0 {
		errs = append(errs, "pipeline.max_concurrent_jobs must be positive")
	}
	if c.Pipeline.MaxConcurrentTasks <= 0 {
		errs = append(errs, "pipeline.max_concurrent_tasks must be positive")
	}

	if c.Tools.Backend != "exec" && c.Tools.Backend != "fitz" {
		errs = append(errs, fmt.Sprintf("invalid tools backend: %s (must be exec or fitz)", c.Tools.Backend))
	}
	if c.Tools.Normalizer != "unoconv" && c.Tools.Normalizer != "soffice" {
		errs = append(errs, fmt.Sprintf("invalid normalizer: %s (must be unoconv or soffice)", c.Tools.Normalizer))
	}

	if c.Transfer.MaxRetries < 0 {
		errs = append(errs, "transfer.max_retries must not be negative")
	}
	if c.Transfer.CallbackMethod != "GET" && c.Transfer.CallbackMethod != "POST" {
		errs = append(errs, fmt.Sprintf("invalid callback method: %s (must be GET or POST)", c.Transfer.CallbackMethod))
	}

	if c.Workspace.BaseDir == "" {
		errs = append(errs, "workspace.base_dir is required")
	}

	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, "store.redis.addr is required for redis driver")
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			errs = append(errs, "store.sqlite.path is required for sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid store driver: %s (must be memory, redis or sqlite)", c.Store.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Address returns the server listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
