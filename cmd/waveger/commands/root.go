package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	rulesPath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "waveger",
	Short: "Waveger - weekly chart prediction contests",
	Long: `Waveger CLI

Runs the weekly chart prediction contest: users predict chart entries,
exits and position changes; every release day the open contest is closed,
scored against the published charts and the next one is opened.

Usage:
  go run ./cmd/waveger [command]

Examples:
  go run ./cmd/waveger migrate
  go run ./cmd/waveger contest init
  go run ./cmd/waveger api
  go run ./cmd/waveger scheduler start
  go run ./cmd/waveger cycle run`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "contest rules YAML (overrides CONTEST_RULES_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
