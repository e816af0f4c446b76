package config

import "time"

// Config holds configuration for both the client CLI and the dev server.
type Config struct {
	// Client settings.
	ServerURL      string        `mapstructure:"server_url" yaml:"server_url"`
	WSURL          string        `mapstructure:"ws_url" yaml:"ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// Dev server settings.
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:         "http://localhost:5001/api",
		WSURL:             "ws://localhost:5001/ws",
		RequestTimeout:    15 * time.Second,
		Addr:              ":5001",
		DatabasePath:      "tradecircle.db",
		JWTSecret:         "dev-only-secret",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
	}
}
