package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guidecraft/guidecraft/internal/builder"
	"github.com/guidecraft/guidecraft/internal/config"
	"github.com/guidecraft/guidecraft/internal/server"
	"github.com/guidecraft/guidecraft/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server with watch and live reload",
	Long: `Start the development server: builds the site once, watches the
source document and guides for changes, rebuilds on save, and serves the
output directory over HTTP. Connected browsers reload automatically.

Examples:
  guidecraft serve
  guidecraft serve --port 3000 --no-reload`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-reload", false, "Disable live reload script injection")
	serveCmd.Flags().Int("debounce", 300, "Debounce interval for rebuilds in milliseconds")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.no-reload", serveCmd.Flags().Lookup("no-reload"))
	viper.BindPFlag("watch.debounce_ms", serveCmd.Flags().Lookup("debounce"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if viper.GetBool("server.no-reload") {
		cfg.Server.LiveReload = false
	}

	log := newLogger()

	b := builder.New(builderConfig(cfg), log)

	fw, err := watcher.New(cfg.Debounce(), log)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	srv := server.New(cfg, b, fw, log)

	// Context that cancels on interrupt
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn(ctx, err, "error during server shutdown")
		}
		cancel()
	}()

	fmt.Printf("Serving %s at http://%s\n", cfg.Site.OutputDir, cfg.Addr())

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
