package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guidecraft/guidecraft/internal/tokens"
)

var tokenPatterns []string

var tokensCmd = &cobra.Command{
	Use:   "tokens [dir]",
	Short: "Report estimated token usage of documentation files",
	Long: `Estimate the token usage of designated files, for keeping AI-context
documents inside model budgets. The estimate is a character/word
heuristic, not a model-specific tokenizer.

Examples:
  guidecraft tokens
  guidecraft tokens docs --pattern '**/*.md'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	addPatternFlag(tokensCmd.Flags(), &tokenPatterns, "count")
}

func runTokens(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	report, err := tokens.Count(root, tokenPatterns)
	if err != nil {
		return fmt.Errorf("token count failed: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tBYTES\tWORDS\tTOKENS")
	for _, fc := range report.Files {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", fc.Path, fc.Bytes, fc.Words, fc.Tokens)
	}
	fmt.Fprintf(w, "TOTAL\t\t\t%d\n", report.Total)
	return w.Flush()
}
