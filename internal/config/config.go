package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "packmap"

	// DefaultBaseURL is where the conformance pack pages are published.
	// A page URL is DefaultBaseURL + framework ID + ".html".
	DefaultBaseURL = "https://docs.aws.amazon.com/config/latest/developerguide/"

	// DefaultTimeout bounds one page request including retries' individual attempts.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of extra attempts after a failed request.
	DefaultRetries = 2

	// DefaultRetryBackoff is the wait between attempts.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultConcurrency is the number of pages fetched at once.
	DefaultConcurrency = 1

	// DefaultUserAgent identifies packmap in HTTP requests.
	DefaultUserAgent = "packmap (+https://github.com/nao1215/packmap)"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTableSelector is the class of the element wrapping the mapping table.
	DefaultTableSelector = "table-contents"

	// DefaultOutputDir is where output files are written.
	DefaultOutputDir = "."

	// DefaultCacheFile holds the extracted mapping between phases.
	DefaultCacheFile = "framework_mappings.json"

	// DefaultAggregatedFile holds the config-rule keyed mapping.
	DefaultAggregatedFile = "controls_by_config_rule.json"

	// DefaultVersionFile holds the creation date of the aggregated file.
	DefaultVersionFile = "version.json"

	// DefaultDocumentFile is the rendered Markdown document.
	DefaultDocumentFile = "config_rule_security_controls.md"
)

// Config holds all configuration options for packmap.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed down explicitly.
type Config struct {
	// BaseURL is the root of the conformance pack pages.
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Retries is the number of retries after a failed request.
	Retries int

	// RetryBackoff is the wait between attempts.
	RetryBackoff time.Duration

	// Concurrency is the number of pages fetched at once.
	Concurrency int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Proxy is an optional SOCKS5 proxy ("host:port") for page requests.
	Proxy string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// TableSelector is the class of the element that wraps the mapping table.
	TableSelector string

	// Frameworks restricts extraction to these framework IDs.
	// Empty means every registered framework.
	Frameworks []string

	// CollectErrors aggregates every resolvable control and reports all
	// resolution failures together instead of aborting on the first one.
	CollectErrors bool

	// CoverageTable adds a per-framework table to the document.
	CoverageTable bool

	// OutputDir is the directory output files are written to.
	OutputDir string

	// CacheFile is the extracted mapping file name, relative to OutputDir.
	CacheFile string

	// AggregatedFile is the aggregated JSON file name, relative to OutputDir.
	AggregatedFile string

	// VersionFile is the version JSON file name, relative to OutputDir.
	VersionFile string

	// DocumentFile is the Markdown document file name, relative to OutputDir.
	DocumentFile string

	// DBDir is the directory of the run history database.
	// Empty disables the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .packmap is searched in the current and home directories,
	// then config.yaml in the XDG config directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		Retries:        DefaultRetries,
		RetryBackoff:   DefaultRetryBackoff,
		Concurrency:    DefaultConcurrency,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		TableSelector:  DefaultTableSelector,
		OutputDir:      DefaultOutputDir,
		CacheFile:      DefaultCacheFile,
		AggregatedFile: DefaultAggregatedFile,
		VersionFile:    DefaultVersionFile,
		DocumentFile:   DefaultDocumentFile,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for packmap.
// On Linux: ~/.local/share/packmap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for packmap.
// On Linux: ~/.config/packmap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// CachePath returns the path of the cache file.
func (c *Config) CachePath() string {
	return filepath.Join(c.OutputDir, c.CacheFile)
}

// AggregatedPath returns the path of the aggregated JSON file.
func (c *Config) AggregatedPath() string {
	return filepath.Join(c.OutputDir, c.AggregatedFile)
}

// VersionPath returns the path of the version file.
func (c *Config) VersionPath() string {
	return filepath.Join(c.OutputDir, c.VersionFile)
}

// DocumentPath returns the path of the Markdown document.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.OutputDir, c.DocumentFile)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.TableSelector == "" {
		return ErrEmptyTableSelector
	}

	if c.CacheFile == "" {
		return ErrEmptyCacheFile
	}

	return nil
}
