package logging

import (
	"log/slog"
	"os"
)

// Name is the name of the application that the logger is created for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the name of the application.
	name Name
}

// NewConfig creates a new logging config.
func NewConfig(name Name) *Config {
	return &Config{
		name: name,
	}
}

// CommonLogger returns the logger that every component shares. It writes JSON to
// stdout and stamps every record with the application name.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	l := slog.New(h).With(slog.String(KeyAppName, string(c.name)))

	// Make the shared logger the process default so that packages logging through
	// slog directly end up in the same stream.
	slog.SetDefault(l)

	return l, nil
}
