// Package cli implements the command-line interface for rowflow's local
// inference runtime and retrieval subsystem.
package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rowflow",
	Short: "Local inference runtime and semantic row retrieval",
	Long: `rowflow manages a locally-supervised inference runtime and a durable
embedding store for semantic search over database rows.

It spawns and health-checks a local Ollama instance (or reuses a system
installation), embeds row content, and serves similarity search used by
natural-language query features.

Examples:
  # Run the supervised runtime in the foreground
  rowflow runtime run

  # Embed rows for a table
  rowflow embed rows.json --connection prod --schema public --table users

  # Search embedded rows
  rowflow search "customers in berlin" --connection prod

  # Ask a question grounded in embedded rows
  rowflow ask "which orders shipped late" --connection prod`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}

		if err := config.Load(cfgFile); err != nil {
			log.Warn("Failed to load config", "error", err)
		}

		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	ui.InitLogger()

	if err := rootCmd.Execute(); err != nil {
		log.Error("Command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/rowflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	rootCmd.AddCommand(runtimeCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(configCmd)
}
