// Package config provides centralized configuration management for the
// taskboard server. It loads configuration from an optional YAML file,
// environment variables, and CLI flags, validates it, and provides
// sensible defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultListenAddr matches the port the original deployment used.
	DefaultListenAddr = ":4000"

	// DefaultRealm is the Basic auth challenge realm.
	DefaultRealm = "Task Manager"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr   string `yaml:"listen_addr"`
	TemplatesDir string `yaml:"templates_dir"`

	// Database
	DatabasePath string `yaml:"database_path"`
	DatabaseKey  string `yaml:"database_key"` // optional, 64 hex characters (32 bytes)

	// Static API credentials. BasicAuthPass may be a bcrypt hash ($2...);
	// anything else is compared as a literal in constant time.
	BasicAuthUser string `yaml:"basic_auth_user"`
	BasicAuthPass string `yaml:"basic_auth_pass"`
	AuthRealm     string `yaml:"auth_realm"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags. Call before LoadConfig.
func ParseFlags() (addr, configFile string) {
	flag.StringVar(&addr, "addr", "", "Listen address (default :4000, overrides LISTEN_ADDR env var)")
	flag.StringVar(&configFile, "config", "", "Optional YAML config file; env vars override its values")
	flag.Parse()
	return addr, configFile
}

// LoadConfig loads configuration from the optional YAML file and environment
// variables. Environment variables win over the file; the addr flag wins
// over both.
func LoadConfig(addr, configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ListenAddr = envOrCurrent("LISTEN_ADDR", cfg.ListenAddr, DefaultListenAddr)
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.TemplatesDir = envOrCurrent("TEMPLATES_DIR", cfg.TemplatesDir, "./web/templates")

	cfg.DatabasePath = envOrCurrent("DATABASE_PATH", cfg.DatabasePath, "./data/taskboard.db")
	cfg.DatabaseKey = envOrCurrent("DATABASE_KEY", cfg.DatabaseKey, "")

	cfg.BasicAuthUser = envOrCurrent("BASIC_AUTH_USER", cfg.BasicAuthUser, "admin")
	cfg.BasicAuthPass = envOrCurrent("BASIC_AUTH_PASS", cfg.BasicAuthPass, "password123")
	cfg.AuthRealm = envOrCurrent("AUTH_REALM", cfg.AuthRealm, DefaultRealm)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.ListenAddr == "" {
		errs = append(errs, "listen address must not be empty")
	}
	if c.DatabasePath == "" {
		errs = append(errs, "DATABASE_PATH must not be empty")
	}
	if c.DatabaseKey != "" && len(c.DatabaseKey) != 64 {
		errs = append(errs, "DATABASE_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
	}
	if c.BasicAuthUser == "" {
		errs = append(errs, "BASIC_AUTH_USER must not be empty")
	}
	if c.BasicAuthPass == "" {
		errs = append(errs, "BASIC_AUTH_PASS must not be empty")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
// Credentials are never echoed.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "taskboard server starting...")
	fmt.Fprintf(os.Stderr, "  Listen:    %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Database:  %s\n", c.DatabasePath)
	if c.DatabaseKey != "" {
		fmt.Fprintln(os.Stderr, "  At rest:   encrypted (DATABASE_KEY)")
	} else {
		fmt.Fprintln(os.Stderr, "  At rest:   plaintext")
	}
	fmt.Fprintf(os.Stderr, "  Auth:      Basic (user %q, realm %q)\n", c.BasicAuthUser, c.AuthRealm)
	fmt.Fprintf(os.Stderr, "  Templates: %s\n", c.TemplatesDir)
	fmt.Fprintln(os.Stderr, "")
}

func envOrCurrent(key, current, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if current != "" {
		return current
	}
	return defaultValue
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when you want the application to fail fast on bad config.
func MustLoadConfig(addr, configFile string) *Config {
	cfg, err := LoadConfig(addr, configFile)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
