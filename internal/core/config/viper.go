package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// keys whose values may carry credentials; these must come from the environment.
var credentialKeys = []string{"source.url", "database.url"}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on top of the returned Config.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.metrics_port", d.Server.MetricsPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_import_bytes", d.Server.MaxImportBytes)
	v.SetDefault("source.url", "")
	v.SetDefault("source.timeout", d.Source.Timeout.String())
	v.SetDefault("database.url", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Checked before env binding so only file values are inspected
		if err := validateNoCredentialsInConfig(v); err != nil {
			return nil, err
		}
	}

	// Bind environment variables with RB_ prefix
	v.SetEnvPrefix("RB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MetricsPort:    v.GetInt("server.metrics_port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxImportBytes: v.GetInt("server.max_import_bytes"),
		},
		Source: SourceConfig{
			URL:     v.GetString("source.url"),
			Timeout: v.GetDuration("source.timeout"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateNoCredentialsInConfig enforces environment-only secrets (12-factor principle).
func validateNoCredentialsInConfig(v *viper.Viper) error {
	for _, key := range credentialKeys {
		if !v.InConfig(key) {
			continue
		}
		u, err := url.Parse(v.GetString(key))
		if err != nil || u.User == nil {
			continue
		}
		if _, hasPassword := u.User.Password(); hasPassword {
			envKey := "RB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			return fmt.Errorf("credentials not allowed in config files (set %s in the environment)", envKey)
		}
	}
	return nil
}
