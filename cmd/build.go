package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guidecraft/guidecraft/internal/builder"
	"github.com/guidecraft/guidecraft/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site once",
	Long: `Build the complete site from the source document into the output
directory. Every build regenerates the full output from the full input;
artifacts are published atomically.

Examples:
  guidecraft build
  guidecraft build --source README.md --output site`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("source", "s", "", "Source document (default README.md)")
	buildCmd.Flags().StringP("output", "o", "", "Output directory (default site)")
	buildCmd.Flags().String("guides", "", "Directory of specialized guides (default docs/guides)")

	viper.BindPFlag("site.source", buildCmd.Flags().Lookup("source"))
	viper.BindPFlag("site.output_dir", buildCmd.Flags().Lookup("output"))
	viper.BindPFlag("site.guides_dir", buildCmd.Flags().Lookup("guides"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	b := builder.New(builderConfig(cfg), newLogger())

	info, err := b.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("Built %d files into %s (%s)\n", info.Files, cfg.Site.OutputDir, info.Duration.Round(time.Millisecond))
	return nil
}

func builderConfig(cfg *config.Config) builder.Config {
	return builder.Config{
		SiteName:         cfg.Site.Name,
		SourcePath:       cfg.Site.Source,
		GuidesDir:        cfg.Site.GuidesDir,
		OutputDir:        cfg.Site.OutputDir,
		ManifestTemplate: cfg.Site.ManifestTemplate,
		BaseURL:          cfg.Site.BaseURL,
		SourceURL:        cfg.Site.SourceURL,
	}
}
