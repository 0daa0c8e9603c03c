// Package main is the entry point for the citelookup CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/citation-lookup-service/internal/config"
	"github.com/helixir/citation-lookup-service/internal/observability"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is loaded once before any subcommand runs.
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd is the base command for the citelookup CLI.
var rootCmd = &cobra.Command{
	Use:   "citelookup",
	Short: "Find the authors citing a paper on Semantic Scholar",
	Long: `citelookup runs the citation lookup pipeline from the command line and
manages the lookup history database.

Configuration comes from CITELOOKUP_* environment variables, an optional
config.yaml and a .env file, the same sources the HTTP server reads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		verbose, _ := cmd.Flags().GetBool("verbose")
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:      level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "cli").Logger()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of citelookup",
	// Overrides the root hook so a broken configuration cannot hide the version.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "citelookup %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log upstream calls to stderr")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
