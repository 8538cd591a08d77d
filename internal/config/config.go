// Package config loads the service configuration from a YAML file, an
// optional .env file and environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/nest/auth"
	"github.com/hugr-lab/nest/dataset"
	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/schema"
	"github.com/hugr-lab/nest/search"
)

// Environment variables read by Load.
const (
	EnvPort          = "PORT"
	EnvDatasetSource = "NEST_DATASET_SOURCE"
	EnvLogLevel      = "NEST_LOG_LEVEL"
	EnvDBPath        = "NEST_DB_PATH"
)

// DefaultHTTPPort is used when neither the file nor PORT set an HTTP address.
const DefaultHTTPPort = 8000

// Config is the complete service configuration.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Server   ServerConfig    `yaml:"server"`
	Engine   EngineConfig    `yaml:"engine"`
	Dataset  DatasetConfig   `yaml:"dataset"`
	Search   SearchConfig    `yaml:"search"`
	Gate     auth.GateConfig `yaml:"gate"`
}

// ServerConfig configures the network surfaces.
type ServerConfig struct {
	// GRPCAddress is the Flight listen address. Empty disables Flight.
	GRPCAddress string `yaml:"grpc_address"`
	// HTTPAddress is the HTTP listen address. Empty disables HTTP.
	HTTPAddress string `yaml:"http_address"`
	// MaxMessageSize bounds gRPC messages in bytes. Zero keeps the default.
	MaxMessageSize int `yaml:"max_message_size"`
	// AuthTokens maps identities to bearer tokens. Empty disables
	// authentication.
	AuthTokens      map[string]string `yaml:"auth_tokens"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
}

// EngineConfig mirrors engine.Config in file form.
type EngineConfig struct {
	Path                  string        `yaml:"path"`
	TempDirectory         string        `yaml:"temp_directory"`
	MaxTempDirectorySize  string        `yaml:"max_temp_directory_size"`
	AccessMode            string        `yaml:"access_mode"`
	Threads               int           `yaml:"threads"`
	HTTPTimeout           time.Duration `yaml:"http_timeout"`
	HTTPKeepAlive         bool          `yaml:"http_keep_alive"`
	HTTPRetries           int           `yaml:"http_retries"`
	S3UploaderThreadLimit int           `yaml:"s3_uploader_thread_limit"`
}

// DatasetConfig names the parquet source loaded by the load command.
type DatasetConfig struct {
	// Source is a local path or an s3://bucket/key URI.
	Source string `yaml:"source"`
	// Download fetches s3 sources with the AWS SDK before loading. When
	// false, DuckDB reads them directly through httpfs.
	Download bool `yaml:"download"`
	// CacheDir receives downloaded sources. Defaults to the engine temp
	// directory.
	CacheDir string `yaml:"cache_dir"`
	// SearchIndex builds the full-text index over company_purpose after
	// loading.
	SearchIndex bool `yaml:"search_index"`
}

// SearchConfig configures the search compiler.
type SearchConfig struct {
	Variant        string `yaml:"variant"`
	Table          string `yaml:"table"`
	BindParameters bool   `yaml:"bind_parameters"`
	RequireFilter  bool   `yaml:"require_filter"`
	Limit          int    `yaml:"limit"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			GRPCAddress:     "localhost:8815",
			HTTPAddress:     ":" + strconv.Itoa(DefaultHTTPPort),
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			TempDirectory:         ec.TempDirectory,
			MaxTempDirectorySize:  ec.MaxTempDirectorySize,
			AccessMode:            string(ec.AccessMode),
			HTTPTimeout:           ec.HTTPTimeout,
			HTTPKeepAlive:         ec.HTTPKeepAlive,
			HTTPRetries:           ec.HTTPRetries,
			S3UploaderThreadLimit: ec.S3UploaderThreadLimit,
		},
		Dataset: DatasetConfig{
			Download:    true,
			SearchIndex: true,
		},
		Search: SearchConfig{
			Variant: string(schema.Typed),
			Table:   schema.DefaultTable,
			Limit:   search.DefaultLimit,
		},
		Gate: auth.DefaultGateConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// not empty), then .env, then the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %q", EnvPort, v)
		}
		c.Server.HTTPAddress = ":" + strconv.Itoa(port)
	}
	if v, ok := lookup(EnvDatasetSource); ok && v != "" {
		c.Dataset.Source = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Engine.Path = v
	}
	return nil
}

// Validate checks values that cannot be checked by the YAML decoder.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := engine.ParseAccessMode(c.Engine.AccessMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := schema.ParseVariant(c.Search.Variant); err != nil {
		errs = append(errs, err)
	}
	if c.Search.Table != "" && !schema.IsPlainIdentifier(c.Search.Table) {
		errs = append(errs, fmt.Errorf("search table %q must be a plain identifier", c.Search.Table))
	}
	if c.Search.Limit < 0 {
		errs = append(errs, fmt.Errorf("search limit must not be negative, got %d", c.Search.Limit))
	}
	if c.Engine.Threads < 0 {
		errs = append(errs, fmt.Errorf("engine threads must not be negative, got %d", c.Engine.Threads))
	}
	if c.Server.MaxMessageSize < 0 {
		errs = append(errs, fmt.Errorf("max message size must not be negative, got %d", c.Server.MaxMessageSize))
	}
	for identity, token := range c.Server.AuthTokens {
		if token == "" {
			errs = append(errs, fmt.Errorf("empty auth token for %q", identity))
		}
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name into a slog.Level. An empty name is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Level returns the configured log level. Call Validate first.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// EngineConfig returns the engine configuration. Remote access is enabled
// when the dataset is an s3 source read directly by DuckDB.
func (c *Config) EngineConfig() engine.Config {
	mode, _ := engine.ParseAccessMode(c.Engine.AccessMode)
	ec := engine.DefaultConfig()
	ec.Path = c.Engine.Path
	if c.Engine.TempDirectory != "" {
		ec.TempDirectory = c.Engine.TempDirectory
	}
	ec.MaxTempDirectorySize = c.Engine.MaxTempDirectorySize
	ec.AccessMode = mode
	ec.Threads = c.Engine.Threads
	ec.HTTPTimeout = c.Engine.HTTPTimeout
	ec.HTTPKeepAlive = c.Engine.HTTPKeepAlive
	ec.HTTPRetries = c.Engine.HTTPRetries
	ec.S3UploaderThreadLimit = c.Engine.S3UploaderThreadLimit
	ec.Remote = dataset.IsRemote(c.Dataset.Source) && !c.Dataset.Download
	return ec
}

// Model returns the schema model searches compile against. Call Validate
// first.
func (c *Config) Model() *schema.Model {
	variant, _ := schema.ParseVariant(c.Search.Variant)
	return schema.New(variant, c.Search.Table)
}

// SearchOptions returns the compiler options.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		BindParameters: c.Search.BindParameters,
		RequireFilter:  c.Search.RequireFilter,
		Limit:          c.Search.Limit,
	}
}

// Authenticator returns the bearer authenticator for the configured tokens,
// or nil when none are configured.
func (c *Config) Authenticator() auth.Authenticator {
	return auth.StaticTokens(c.Server.AuthTokens)
}

// CacheDir returns the directory downloaded sources are stored in.
func (c *Config) CacheDir() string {
	if c.Dataset.CacheDir != "" {
		return c.Dataset.CacheDir
	}
	return c.EngineConfig().TempDirectory
}
