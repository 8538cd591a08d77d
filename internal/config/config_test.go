package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8000", cfg.Server.HTTPAddress)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, schema.Typed, cfg.Model().Variant())
	assert.Equal(t, "companies", cfg.Model().Table())
	assert.Nil(t, cfg.Authenticator())

	ec := cfg.EngineConfig()
	assert.Equal(t, engine.AccessAutomatic, ec.AccessMode)
	assert.Equal(t, "10 GB", ec.MaxTempDirectorySize)
	assert.Equal(t, 15*time.Minute, ec.HTTPTimeout)
	assert.False(t, ec.Remote)
}

func TestDecode(t *testing.T) {
	cfg := Default()
	err := cfg.decode([]byte(`
log_level: debug
server:
  grpc_address: "0.0.0.0:9000"
  auth_tokens:
    alice: secret
  shutdown_timeout: 3s
engine:
  path: /data/nest.db
  access_mode: read_only
  threads: 4
dataset:
  source: s3://bucket/companies.parquet
  download: false
search:
  variant: flattened
  bind_parameters: true
  limit: 50
gate:
  disabled: true
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.GRPCAddress)
	assert.Equal(t, ":8000", cfg.Server.HTTPAddress, "unset keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.NotNil(t, cfg.Authenticator())
	assert.True(t, cfg.Gate.Disabled)

	ec := cfg.EngineConfig()
	assert.Equal(t, "/data/nest.db", ec.DatabasePath())
	assert.Equal(t, engine.AccessReadOnly, ec.AccessMode)
	assert.Equal(t, 4, ec.Threads)
	assert.True(t, ec.Remote, "s3 sources read in place need httpfs")

	assert.Equal(t, schema.Flattened, cfg.Model().Variant())
	opts := cfg.SearchOptions()
	assert.True(t, opts.BindParameters)
	assert.Equal(t, 50, opts.Limit)
}

func TestDecodeUnknownField(t *testing.T) {
	err := Default().decode([]byte("serverr:\n  grpc_address: x\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvPort:          "9090",
		EnvDatasetSource: "/tmp/companies.parquet",
		EnvLogLevel:      "warn",
		EnvDBPath:        "/tmp/nest.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddress)
	assert.Equal(t, "/tmp/companies.parquet", cfg.Dataset.Source)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, "/tmp/nest.db", cfg.EngineConfig().Path)

	assert.Error(t, Default().ApplyEnv(envMap(map[string]string{EnvPort: "http"})))
	assert.Error(t, Default().ApplyEnv(envMap(map[string]string{EnvPort: "70000"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"access mode", func(c *Config) { c.Engine.AccessMode = "exclusive" }},
		{"variant", func(c *Config) { c.Search.Variant = "nested" }},
		{"limit", func(c *Config) { c.Search.Limit = -1 }},
		{"quoted table", func(c *Config) { c.Search.Table = "my-companies" }},
		{"reserved table", func(c *Config) { c.Search.Table = "order" }},
		{"threads", func(c *Config) { c.Engine.Threads = -2 }},
		{"message size", func(c *Config) { c.Server.MaxMessageSize = -1 }},
		{"empty token", func(c *Config) { c.Server.AuthTokens = map[string]string{"bob": ""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "nest.yaml", "search:\n  table: firms\n")
	t.Setenv(EnvPort, "8123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "firms", cfg.Model().Table())
	assert.Equal(t, ":8123", cfg.Server.HTTPAddress)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := writeFile(t, "bad.yaml", "log_level: loud\n")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestCacheDir(t *testing.T) {
	cfg := Default()
	cfg.Engine.TempDirectory = "/var/tmp/nest"
	assert.Equal(t, "/var/tmp/nest", cfg.CacheDir())

	cfg.Dataset.CacheDir = "/cache"
	assert.Equal(t, "/cache", cfg.CacheDir())
}
