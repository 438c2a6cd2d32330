// Package cmd provides the command-line interface for guidecraft with
// configuration from multiple sources.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--port, --source, etc.)
//  2. GUIDECRAFT_CONFIG_FILE environment variable - custom config file path
//  3. Individual environment variables (GUIDECRAFT_SERVER_PORT, etc.)
//  4. Configuration file (.guidecraft.yml)
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guidecraft/guidecraft/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guidecraft",
	Short: "Publish a markdown guide as a static JSON API with a live-reload dev server",
	Long: `Guidecraft converts a README-style markdown guide (plus its linked
specialized guides) into a static JSON/HTML site, and serves it locally
with watch-and-rebuild during development.

Quick Start:
  guidecraft build                Build the site once
  guidecraft serve                Dev server with live reload
  guidecraft check docs           Check markdown links
  guidecraft tokens               Report estimated token usage
  guidecraft release --tag v1.0   Upload site assets to a GitHub Release`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .guidecraft.yml, can also use GUIDECRAFT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// newLogger builds the process logger from the configured log level.
func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: "text",
		Output: os.Stderr,
	})
}

// initConfig initializes the configuration system.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("GUIDECRAFT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".guidecraft")
	}

	// Automatic environment variable binding with GUIDECRAFT_ prefix,
	// e.g. GUIDECRAFT_SERVER_PORT, GUIDECRAFT_SITE_OUTPUT_DIR.
	viper.SetEnvPrefix("GUIDECRAFT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing or unreadable config files degrade to defaults
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
