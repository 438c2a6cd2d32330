package cmd

import (
	"github.com/spf13/pflag"
)

// addPatternFlag defines the repeatable --pattern flag shared by the
// commands that select documentation files with globs.
func addPatternFlag(fs *pflag.FlagSet, target *[]string, verb string) {
	fs.StringArrayVar(target, "pattern", nil, "Glob pattern of files to "+verb+" (repeatable, default **/*.md)")
}
