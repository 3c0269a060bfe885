// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them in Load.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the score/lock store: memory, sqlite, postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the database DSN for the sqlite and postgres drivers.
	StoreDSN string `koanf:"store_dsn"`

	// EventFile points at the YAML event definition (divisions, categories,
	// judges, contestants). Required.
	EventFile string `koanf:"event_file"`

	// QueueCapacity bounds the in-memory refresh queue.
	QueueCapacity int `koanf:"queue_capacity"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// CoalesceMaxSize caps the pending-refresh tracker.
	CoalesceMaxSize int `koanf:"coalesce_max_size"`

	// JWTSecret signs judge and admin tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`

	// AdminAccessCode is exchanged for an administrator token at login.
	AdminAccessCode string `koanf:"admin_access_code"`

	// TokenTTLMinutes bounds token lifetime.
	TokenTTLMinutes int `koanf:"token_ttl_minutes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     "memory",
		StoreDSN:        "",
		EventFile:       "event.yaml",
		QueueCapacity:   1024,
		WorkerCount:     2,
		CoalesceMaxSize: 4096,
		JWTSecret:       "",
		AdminAccessCode: "",
		TokenTTLMinutes: 480,
	}
}
