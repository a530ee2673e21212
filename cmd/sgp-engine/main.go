package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// rootCmd is the base command for the SGP engine CLI
var rootCmd = &cobra.Command{
	Use:   "sgp-engine",
	Short: "NBA same-game parlay engine",
	Long: `sgp-engine scores NBA player props with six statistical signals, builds
one same-game parlay per game and settles yesterday's parlays against box scores.

Configuration is read from an optional YAML file and SGP_ environment variables,
e.g. SGP_DATABASE_DSN, SGP_PROVIDERS_ODDS_API_KEY.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
