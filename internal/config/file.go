package config

import "time"

// OutputConfig is the output block of the configuration file.
type OutputConfig struct {
	// Dir is the directory output files are written to.
	Dir string `yaml:"dir,omitempty"`

	// Cache is the extracted mapping file name.
	Cache string `yaml:"cache,omitempty"`

	// Aggregated is the aggregated JSON file name.
	Aggregated string `yaml:"aggregated,omitempty"`

	// Version is the version file name.
	Version string `yaml:"version,omitempty"`

	// Document is the Markdown document file name.
	Document string `yaml:"document,omitempty"`

	// DBDir is the run history database directory.
	DBDir string `yaml:"dbDir,omitempty"`

	// CoverageTable adds a per-framework table to the document.
	CoverageTable bool `yaml:"coverageTable,omitempty"`
}

// File represents the structure of the .packmap configuration file.
// Zero values leave the corresponding default untouched.
type File struct {
	BaseURL       string            `yaml:"baseURL,omitempty"`
	UserAgent     string            `yaml:"userAgent,omitempty"`
	Timeout       time.Duration     `yaml:"timeout,omitempty"`
	Retries       *int              `yaml:"retries,omitempty"`
	Concurrency   int               `yaml:"concurrency,omitempty"`
	TableSelector string            `yaml:"tableSelector,omitempty"`
	Frameworks    []string          `yaml:"frameworks,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	Proxy         string            `yaml:"proxy,omitempty"`
	CollectErrors bool              `yaml:"collectErrors,omitempty"`
	Output        OutputConfig      `yaml:"output,omitempty"`
}

// Apply copies every value set in f onto c. Headers are merged, with f
// winning on conflicts.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}

	setString(&c.BaseURL, f.BaseURL)
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.TableSelector, f.TableSelector)
	setString(&c.Proxy, f.Proxy)
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.Retries != nil {
		c.Retries = *f.Retries
	}
	if f.Concurrency > 0 {
		c.Concurrency = f.Concurrency
	}
	if len(f.Frameworks) > 0 {
		c.Frameworks = append([]string(nil), f.Frameworks...)
	}
	if len(f.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(f.Headers))
		}
		for k, v := range f.Headers {
			c.Headers[k] = v
		}
	}
	if f.CollectErrors {
		c.CollectErrors = true
	}

	setString(&c.OutputDir, f.Output.Dir)
	setString(&c.CacheFile, f.Output.Cache)
	setString(&c.AggregatedFile, f.Output.Aggregated)
	setString(&c.VersionFile, f.Output.Version)
	setString(&c.DocumentFile, f.Output.Document)
	setString(&c.DBDir, f.Output.DBDir)
	if f.Output.CoverageTable {
		c.CoverageTable = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
