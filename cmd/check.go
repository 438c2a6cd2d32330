package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidecraft/guidecraft/internal/lint"
)

var checkPatterns []string

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Check markdown links in a documentation tree",
	Long: `Check every markdown (and generated HTML) file in a directory tree for
broken relative links and missing heading anchors. External links are not
fetched.

Examples:
  guidecraft check
  guidecraft check docs --pattern '**/*.md' --pattern '**/*.html'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addPatternFlag(checkCmd.Flags(), &checkPatterns, "check")
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	report, err := lint.NewChecker(root, checkPatterns).Run()
	if err != nil {
		return fmt.Errorf("link check failed: %w", err)
	}

	for _, issue := range report.Issues {
		fmt.Printf("%s: %s: %s\n", issue.File, issue.Link, issue.Reason)
	}
	fmt.Printf("Checked %d files, %d broken links\n", report.FilesChecked, len(report.Issues))

	if !report.Clean() {
		return fmt.Errorf("%d broken links found", len(report.Issues))
	}
	return nil
}
