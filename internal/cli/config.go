package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  rowflow config

  # Show config file paths
  rowflow config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Global config: %s\n", config.GlobalConfigPath())
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Store:         %s\n", cfg.Store.Path)
		fmt.Printf("Data dir:      %s\n", cfg.Runtime.DataDir)
		return nil
	}

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Runtime:"))
	fmt.Printf("  Port: %d\n", cfg.Runtime.Port)
	if cfg.Runtime.Binary != "" {
		fmt.Printf("  Binary: %s\n", cfg.Runtime.Binary)
	}
	fmt.Printf("  Data Dir: %s\n", cfg.Runtime.DataDir)
	fmt.Printf("  Prefer System: %t\n", cfg.Runtime.PreferSystem)
	fmt.Printf("  Max Restart Attempts: %d\n", cfg.Runtime.MaxRestartAttempts)
	fmt.Printf("  Health Check Interval: %s\n", cfg.Runtime.HealthCheckInterval)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	if cfg.Embeddings.Ollama.URL != "" {
		fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	}
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Retrieval:"))
	fmt.Printf("  Top K: %d\n", cfg.Retrieval.TopK)
	fmt.Printf("  Batch Size: %d\n", cfg.Retrieval.BatchSize)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Store:"))
	fmt.Printf("  Path: %s\n", cfg.Store.Path)

	return nil
}
