// Package config provides configuration management for guidecraft using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files (.guidecraft.yml),
// environment variable overrides with GUIDECRAFT_ prefix, and validation.
// It manages the site source/output paths, dev server settings, and watch
// behavior.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Release ReleaseConfig `yaml:"release"`
}

// SiteConfig describes what gets built: the source document, the optional
// guides directory, and where the rendered artifact set is published.
type SiteConfig struct {
	Name             string `yaml:"name"`
	Source           string `yaml:"source"`
	GuidesDir        string `yaml:"guides_dir"`
	OutputDir        string `yaml:"output_dir"`
	BaseURL          string `yaml:"base_url"`
	SourceURL        string `yaml:"source_url"`
	ManifestTemplate string `yaml:"manifest_template"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	Host       string `yaml:"host"`
	LiveReload bool   `yaml:"live_reload"`
}

type WatchConfig struct {
	// DebounceMs is the quiescence window: change events closer together
	// than this collapse into a single rebuild.
	DebounceMs int `yaml:"debounce_ms"`
}

// ReleaseConfig identifies the GitHub repository release assets are
// uploaded to. The token always comes from the environment, never from
// the config file.
type ReleaseConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle values set via viper keys rather than the unmarshal pass
	// (flag bindings land here).
	if viper.IsSet("site.source") {
		config.Site.Source = viper.GetString("site.source")
	}
	if viper.IsSet("site.guides_dir") {
		config.Site.GuidesDir = viper.GetString("site.guides_dir")
	}
	if viper.IsSet("site.output_dir") {
		config.Site.OutputDir = viper.GetString("site.output_dir")
	}
	if viper.IsSet("server.port") {
		config.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("server.host") {
		config.Server.Host = viper.GetString("server.host")
	}
	if viper.IsSet("server.live_reload") {
		config.Server.LiveReload = viper.GetBool("server.live_reload")
	}
	if viper.IsSet("watch.debounce_ms") {
		config.Watch.DebounceMs = viper.GetInt("watch.debounce_ms")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Site.Source == "" {
		config.Site.Source = "README.md"
	}
	if config.Site.GuidesDir == "" {
		config.Site.GuidesDir = filepath.Join("docs", "guides")
	}
	if config.Site.OutputDir == "" {
		config.Site.OutputDir = "site"
	}
	if config.Site.BaseURL == "" {
		config.Site.BaseURL = "api/guides"
	}
	if config.Site.ManifestTemplate == "" {
		config.Site.ManifestTemplate = filepath.Join("mcp", "manifest.template.json")
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if !viper.IsSet("server.live_reload") {
		config.Server.LiveReload = true
	}
	if config.Watch.DebounceMs == 0 {
		config.Watch.DebounceMs = 300
	}
}

// Debounce returns the watch debounce interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// Addr returns the host:port the dev server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateSiteConfig(&config.Site); err != nil {
		return fmt.Errorf("site config: %w", err)
	}
	if config.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch config: debounce_ms must not be negative")
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validateSiteConfig validates site path configuration values
func validateSiteConfig(config *SiteConfig) error {
	if err := validatePath(config.Source); err != nil {
		return fmt.Errorf("invalid source '%s': %w", config.Source, err)
	}
	if err := validatePath(config.GuidesDir); err != nil {
		return fmt.Errorf("invalid guides_dir '%s': %w", config.GuidesDir, err)
	}
	if err := validatePath(config.OutputDir); err != nil {
		return fmt.Errorf("invalid output_dir '%s': %w", config.OutputDir, err)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
