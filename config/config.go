// Package config carries the process configuration. Everything is supplied
// at process start through command-line flags; there are no environment
// variables and no config file.
package config

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LogLevel string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig identifies the relational store: a connection URL plus
// optional credentials.
type DatabaseConfig struct {
	URL      string
	User     string
	Password string
}

// Default returns the built-in configuration; the CLI overrides individual
// fields from flags.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3001,
			ReadTimeout:  15,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{
			URL: "books.db",
		},
		LogLevel: "info",
	}
}
