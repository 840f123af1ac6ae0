package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"sweeparr/internal/models"
)

// Config holds all application configuration
type Config struct {
	// Emby
	ServerURL string
	APIKey    string

	// Resolution
	Days                 int
	Whitelist            []string
	Libraries            []string
	IncludeRecent        bool
	IgnoreEpisodes       bool
	IgnoreRecentEpisodes bool

	// Sonarr / Radarr
	SonarrURL    string
	SonarrAPIKey string
	RadarrURL    string
	RadarrAPIKey string

	// Deletion
	DeleteMode  models.DeleteMode
	DeleteFiles bool
	DryRun      bool

	// Output
	SortBySize    bool
	ListLibraries bool
	LogLevel      string

	// Scheduling
	IntervalHours int
	RunAtStart    bool
	Daemon        bool
}

// FromViper builds a Config from bound flags and SWEEPARR_* environment variables
func FromViper(v *viper.Viper) (*Config, error) {
	mode, err := models.ParseDeleteMode(v.GetString("delete-mode"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerURL:            v.GetString("server"),
		APIKey:               v.GetString("api-key"),
		Days:                 v.GetInt("days"),
		Whitelist:            splitList(v.GetString("whitelist")),
		Libraries:            splitList(v.GetString("libraries")),
		IncludeRecent:        v.GetBool("include-recent"),
		IgnoreEpisodes:       v.GetBool("ignore-episodes"),
		IgnoreRecentEpisodes: v.GetBool("ignore-recent-episodes"),
		SonarrURL:            v.GetString("sonarr-url"),
		SonarrAPIKey:         v.GetString("sonarr-api-key"),
		RadarrURL:            v.GetString("radarr-url"),
		RadarrAPIKey:         v.GetString("radarr-api-key"),
		DeleteMode:           mode,
		DeleteFiles:          v.GetBool("delete-files"),
		DryRun:               v.GetBool("dry-run"),
		SortBySize:           v.GetBool("sort-by-size"),
		ListLibraries:        v.GetBool("list-libraries"),
		LogLevel:             v.GetString("log-level"),
		IntervalHours:        v.GetInt("interval"),
		RunAtStart:           v.GetBool("run-at-start"),
		Daemon:               v.GetBool("daemon"),
	}, nil
}

// Validate checks required fields and mode combinations. It runs before any
// gateway call is made.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Days <= 0 {
		return fmt.Errorf("days must be greater than 0")
	}
	if c.SonarrURL != "" && c.SonarrAPIKey == "" {
		return fmt.Errorf("sonarr API key is required when sonarr URL is set")
	}
	if c.RadarrURL != "" && c.RadarrAPIKey == "" {
		return fmt.Errorf("radarr API key is required when radarr URL is set")
	}
	if c.IntervalHours < 0 {
		return fmt.Errorf("interval must be greater than 0")
	}
	if c.Daemon && c.IntervalHours == 0 {
		return fmt.Errorf("daemon mode requires an interval")
	}
	return nil
}

// Scheduled reports whether the process runs as a recurring loop
func (c *Config) Scheduled() bool {
	return c.IntervalHours > 0
}

// Interval returns the recurring run interval
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Normalize downgrades incompatible option combinations before any item is
// evaluated. Interactive deletion needs an operator at a terminal and a
// single-shot run.
func (c *Config) Normalize(stdinIsTerminal bool, logger *logrus.Logger) {
	if c.DeleteMode != models.DeleteModeInteractive {
		return
	}
	if c.Scheduled() {
		logger.Warn("Interactive deletion is not compatible with scheduled execution, falling back to delete-mode=none")
		c.DeleteMode = models.DeleteModeNone
		return
	}
	if !stdinIsTerminal {
		logger.Warn("Interactive deletion requires a terminal on stdin, falling back to delete-mode=none")
		c.DeleteMode = models.DeleteModeNone
	}
}

// splitList splits a comma-separated list, trimming blanks
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
