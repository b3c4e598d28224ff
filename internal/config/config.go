package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one job board to poll.
type Source struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"` // greenhouse | lever | ashby
	Identifier string `yaml:"identifier"`
	Enabled    bool   `yaml:"enabled"`
}

// Search holds the keyword rules a posting is evaluated against.
// required_terms use AND logic, keyword_groups require at least one hit per
// group, exclude_terms disqualify on any hit.
type Search struct {
	RequiredTerms []string   `yaml:"required_terms"`
	KeywordGroups [][]string `yaml:"keyword_groups"`
	ExcludeTerms  []string   `yaml:"exclude_terms"`
}

// Email configures alert delivery. The SMTP password is never in the file;
// it comes from the environment or the OS keychain (see internal/secrets).
type Email struct {
	From                     string  `yaml:"from"`
	To                       string  `yaml:"to"` // comma-separated recipients
	SMTPHost                 string  `yaml:"smtp_host"`
	SMTPPort                 int     `yaml:"smtp_port"`
	Username                 string  `yaml:"username"`
	UseTLS                   bool    `yaml:"use_tls"`
	MaxRetries               int     `yaml:"max_retries"`
	RetryInitialDelaySeconds int     `yaml:"retry_initial_delay_seconds"`
	RetryBackoffMultiplier   float64 `yaml:"retry_backoff_multiplier"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	ScanInterval string `yaml:"scan_interval"`

	Sources []Source `yaml:"sources"`
	Search  Search   `yaml:"search"`
	Email   Email    `yaml:"email"`

	Logging struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"logging"`

	Advanced struct {
		HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
		UserAgent          string `yaml:"user_agent"`
		MaxJobsPerSource   int    `yaml:"max_jobs_per_source"`
	} `yaml:"advanced"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// EnabledSources returns the sources to poll, in config order.
func (c Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Interval parses scan_interval, falling back to 15m when unset or invalid.
func (c Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.ScanInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// HTTPTimeout returns the adapter request timeout with a 30s default.
func (c Config) HTTPTimeout() time.Duration {
	if c.Advanced.HTTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Advanced.HTTPTimeoutSeconds) * time.Second
}

// RetryInitialDelay returns the first backoff delay with a 5s default.
func (e Email) RetryInitialDelay() time.Duration {
	if e.RetryInitialDelaySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.RetryInitialDelaySeconds) * time.Second
}
