// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the base URL of the hourly snapshot feed; hour
	// paths like 00.json are appended to it.
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// Hours is how many hourly snapshots to fetch per refresh, clamped to
	// [1, 24] at load time.
	Hours int `koanf:"hours"`

	// FetchTimeoutMS bounds each snapshot request.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxConcurrency bounds simultaneous snapshot fetches.
	MaxConcurrency int `koanf:"max_concurrency"`

	// RefreshMaxAgeMS is how stale the aggregate set may get before the
	// background loop rebuilds it.
	RefreshMaxAgeMS int `koanf:"refresh_max_age_ms"`

	// OutputDir receives the NDJSON/CSV interchange files.
	OutputDir string `koanf:"output_dir"`

	// ArchivePath locates the SQLite archive; empty disables archiving.
	ArchivePath string `koanf:"archive_path"`

	// LiveFeedURL is the external live-position feed; empty disables it.
	LiveFeedURL string `koanf:"live_feed_url"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		UpstreamBaseURL: "https://a.windbornesystems.com/treasure",
		Hours:           24,
		FetchTimeoutMS:  15_000,
		MaxConcurrency:  8,
		RefreshMaxAgeMS: 600_000,
		OutputDir:       "out",
		ArchivePath:     "",
		LiveFeedURL:     "",
	}
}
