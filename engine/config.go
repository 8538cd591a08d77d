package engine

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AccessMode is the DuckDB database access mode.
type AccessMode string

const (
	AccessAutomatic AccessMode = "automatic"
	AccessReadOnly  AccessMode = "read_only"
	AccessReadWrite AccessMode = "read_write"
)

// ParseAccessMode converts a configuration value into an AccessMode.
// An empty value selects AccessAutomatic.
func ParseAccessMode(s string) (AccessMode, error) {
	switch mode := AccessMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return AccessAutomatic, nil
	case AccessAutomatic, AccessReadOnly, AccessReadWrite:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown access mode %q", s)
	}
}

// DefaultDatabaseFile is the database file name used when Config.Path is empty.
const DefaultDatabaseFile = "nest_mcp.db"

// Config configures a DuckDB handle.
type Config struct {
	// Path is the database file. Empty means DefaultDatabaseFile inside
	// TempDirectory. ":memory:" opens an in-memory database.
	Path string

	// TempDirectory is where DuckDB spills and where the default database
	// file lives. Defaults to the working directory.
	TempDirectory string

	// MaxTempDirectorySize limits spilling, e.g. "10 GB".
	MaxTempDirectorySize string

	AccessMode AccessMode

	// Threads limits DuckDB worker threads. Zero keeps the engine default.
	Threads int

	// Remote enables the httpfs settings and the S3 credential-chain secret
	// needed to read s3:// sources directly.
	Remote                bool
	HTTPTimeout           time.Duration
	HTTPKeepAlive         bool
	HTTPRetries           int
	S3UploaderThreadLimit int
}

// DefaultConfig returns the configuration the service runs with when nothing
// is overridden.
func DefaultConfig() Config {
	dir, err := os.Getwd()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		TempDirectory:         dir,
		MaxTempDirectorySize:  "10 GB",
		AccessMode:            AccessAutomatic,
		HTTPTimeout:           15 * time.Minute,
		HTTPKeepAlive:         true,
		HTTPRetries:           3,
		S3UploaderThreadLimit: 64,
	}
}

// DatabasePath returns the resolved database file path.
func (c Config) DatabasePath() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(c.TempDirectory, DefaultDatabaseFile)
}

func (c Config) dsn() string {
	path := c.DatabasePath()
	if path == ":memory:" {
		path = ""
	}
	q := url.Values{}
	switch c.AccessMode {
	case AccessReadOnly:
		q.Set("access_mode", "READ_ONLY")
	case AccessReadWrite:
		q.Set("access_mode", "READ_WRITE")
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// bootStatements are executed on the fresh handle before it is used.
func (c Config) bootStatements() []string {
	var stmts []string
	if c.TempDirectory != "" {
		stmts = append(stmts, "SET temp_directory = "+quoteLiteral(c.TempDirectory))
	}
	if c.MaxTempDirectorySize != "" {
		stmts = append(stmts, "SET max_temp_directory_size = "+quoteLiteral(c.MaxTempDirectorySize))
	}
	if c.Threads > 0 {
		stmts = append(stmts, "SET threads = "+strconv.Itoa(c.Threads))
	}
	if !c.Remote {
		return stmts
	}
	return append(stmts,
		"INSTALL httpfs",
		"LOAD httpfs",
		"SET http_timeout = "+strconv.FormatInt(int64(c.HTTPTimeout/time.Second), 10),
		"SET http_keep_alive = "+strconv.FormatBool(c.HTTPKeepAlive),
		"SET http_retries = "+strconv.Itoa(c.HTTPRetries),
		"SET s3_uploader_thread_limit = "+strconv.Itoa(c.S3UploaderThreadLimit),
		"CREATE OR REPLACE SECRET nest_s3 (TYPE s3, PROVIDER credential_chain, REFRESH auto)",
	)
}
