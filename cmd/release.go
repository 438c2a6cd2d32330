package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guidecraft/guidecraft/internal/config"
	"github.com/guidecraft/guidecraft/internal/release"
)

var releaseTag string

var releaseCmd = &cobra.Command{
	Use:   "release --tag <tag> <asset>...",
	Short: "Upload assets to a GitHub Release",
	Long: `Upload local asset files to the GitHub Release for a tag, creating the
release when it does not exist yet. Authentication uses the GITHUB_TOKEN
environment variable.

Examples:
  guidecraft release --tag v1.2.0 site/api/guide.json site/manifest.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().StringVar(&releaseTag, "tag", "", "Release tag (required)")
	releaseCmd.Flags().String("owner", "", "GitHub repository owner")
	releaseCmd.Flags().String("repo", "", "GitHub repository name")
	_ = releaseCmd.MarkFlagRequired("tag")

	viper.BindPFlag("release.owner", releaseCmd.Flags().Lookup("owner"))
	viper.BindPFlag("release.repo", releaseCmd.Flags().Lookup("repo"))
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Release.Owner == "" || cfg.Release.Repo == "" {
		return fmt.Errorf("release.owner and release.repo must be configured")
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}

	client := release.NewClient(cfg.Release.Owner, cfg.Release.Repo, token)

	rel, err := client.EnsureRelease(cmd.Context(), releaseTag)
	if err != nil {
		return fmt.Errorf("resolving release %s: %w", releaseTag, err)
	}

	for _, path := range args {
		asset, err := client.UploadAsset(cmd.Context(), rel, path)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
		fmt.Printf("Uploaded %s (%d bytes)\n", asset.Name, asset.Size)
	}

	fmt.Printf("Release %s: %d assets uploaded\n", rel.TagName, len(args))
	return nil
}
