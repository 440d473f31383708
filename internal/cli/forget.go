package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/ui"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

var (
	forgetConnection string
	forgetSchema     string
	forgetTable      string
)

// forgetCmd represents the forget command
var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Delete all embeddings for a table",
	Long: `Remove every stored embedding for one table scope, e.g. before
re-embedding a table from scratch or when it is no longer tracked.

Examples:
  rowflow forget --connection prod --schema public --table users`,
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().StringVar(&forgetConnection, "connection", "", "connection identifier (required)")
	forgetCmd.Flags().StringVar(&forgetSchema, "schema", "public", "schema name")
	forgetCmd.Flags().StringVar(&forgetTable, "table", "", "table name (required)")
	forgetCmd.MarkFlagRequired("connection")
	forgetCmd.MarkFlagRequired("table")
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := vecstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	deleted, err := st.DeleteTable(forgetConnection, forgetSchema, forgetTable)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}

	fmt.Printf("%s %d embeddings for %s\n",
		ui.Success.Render("Deleted"), deleted, ui.FormatTableRef(forgetSchema, forgetTable))

	return nil
}
