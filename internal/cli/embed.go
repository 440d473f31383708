package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/embeddings"
	"github.com/zachrizzo/RowFlow/internal/retrieval"
	"github.com/zachrizzo/RowFlow/internal/ui"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

var (
	embedConnection string
	embedSchema     string
	embedTable      string
)

// embedCmd represents the embed command
var embedCmd = &cobra.Command{
	Use:   "embed <rows.json>",
	Short: "Embed rows for a table into the vector store",
	Long: `Embed row content for one table and persist the vectors.

The input file holds a JSON array of rows, each with a "reference" (an opaque
row identifier) and a "columns" object mapping column names to values:

  [
    {"reference": "id=1", "columns": {"id": 1, "name": "Ada"}},
    {"reference": "id=2", "columns": {"id": 2, "name": "Grace"}}
  ]

Re-running with unchanged rows is idempotent: unchanged rows update in place.

Examples:
  rowflow embed rows.json --connection prod --schema public --table users`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&embedConnection, "connection", "", "connection identifier (required)")
	embedCmd.Flags().StringVar(&embedSchema, "schema", "public", "schema name")
	embedCmd.Flags().StringVar(&embedTable, "table", "", "table name (required)")
	embedCmd.MarkFlagRequired("connection")
	embedCmd.MarkFlagRequired("table")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rows file: %w", err)
	}

	var rows []retrieval.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to parse rows file: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No rows to embed.")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	st, err := vecstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	embedder, err := embeddings.NewService(cfg, runtimeEndpoint(cfg))
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	engine := retrieval.New(st, embedder, cfg)

	start := time.Now()
	count, err := engine.EmbedTable(ctx, embedConnection, embedSchema, embedTable, rows)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	log.Debug("Embedding complete", "records", count, "elapsed", time.Since(start))
	fmt.Printf("%s %d rows into %s\n",
		ui.Success.Render("Embedded"), count, ui.FormatTableRef(embedSchema, embedTable))

	return nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	return ctx, cancel
}
