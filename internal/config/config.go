// Package config loads the prcounter YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = time.DateOnly

// Config is the root of the configuration file.
type Config struct {
	Application ApplicationConfig `yaml:"application"`
	GitHub      GitHubConfig      `yaml:"github"`
	Database    DatabaseConfig    `yaml:"database"`
}

type ApplicationConfig struct {
	// LogPath enables debug logging to a file when set.
	LogPath string `yaml:"log_path"`
}

type GitHubConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// Users restricts the report to these logins. Empty reports everyone.
	Users             []string      `yaml:"users"`
	SearchIssueQuery  []string      `yaml:"search_issue_query"`
	MaxRateLimitSleep time.Duration `yaml:"max_rate_limit_sleep"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// SQLPath overrides the embedded SQL statements.
	SQLPath string `yaml:"sql_path"`
}

// Load reads the configuration file at path. GITHUB_TOKEN is used when the
// file carries no token.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{
		GitHub: GitHubConfig{MaxRateLimitSleep: time.Hour},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	return &cfg, nil
}

// Validate checks the configuration. remote is true when the run talks to GitHub.
func (c *Config) Validate(remote bool) error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if remote {
		if c.GitHub.Token == "" {
			errs = append(errs, errors.New("github.token is required (or set GITHUB_TOKEN)"))
		}
		if len(c.GitHub.SearchIssueQuery) == 0 {
			errs = append(errs, errors.New("github.search_issue_query needs at least one query"))
		}
		if c.GitHub.MaxRateLimitSleep <= 0 {
			errs = append(errs, errors.New("github.max_rate_limit_sleep must be positive"))
		}
	}
	return errors.Join(errs...)
}

// ParseDateRange parses YYYY-MM-DD bounds and checks start <= end.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q, use YYYY-MM-DD: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q, use YYYY-MM-DD: %w", end, err)
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return s, e, nil
}
