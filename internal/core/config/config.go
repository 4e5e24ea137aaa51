// Package config provides configuration management for rulebook services.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the full rulebook configuration.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Database DatabaseConfig
}

// ServerConfig holds configuration for the gRPC editor service.
type ServerConfig struct {
	Host           string
	Port           int
	MetricsPort    int // 0 disables the /metrics listener
	RequestTimeout time.Duration
	MaxImportBytes int
}

// SourceConfig names where the initial rulesets are loaded from.
// An empty URL seeds the sample dataset.
type SourceConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig holds the catalog database URL used by migrate and catalog commands.
type DatabaseConfig struct {
	URL string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           50051,
			MetricsPort:    0,
			RequestTimeout: 30 * time.Second,
			MaxImportBytes: 4 << 20,
		},
		Source: SourceConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Address returns host:port for the gRPC listener.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MetricsAddress returns host:port for the metrics listener, or "" when disabled.
func (c ServerConfig) MetricsAddress() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.MetricsPort))
}

// Validate checks port ranges and positive limits.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port must be between 0 and 65535, got %d", c.Server.MetricsPort)
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.Port {
		return fmt.Errorf("server.metrics_port must differ from server.port (%d)", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}
	if c.Server.MaxImportBytes <= 0 {
		return fmt.Errorf("server.max_import_bytes must be positive, got %d", c.Server.MaxImportBytes)
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %v", c.Source.Timeout)
	}
	return nil
}
