package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/ui"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

var tablesConnection string

// tablesCmd represents the tables command
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Show embedding coverage per table",
	Long: `List which tables have embedded rows for a connection, with record
counts and the last time each table was embedded.

Examples:
  rowflow tables --connection prod`,
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().StringVar(&tablesConnection, "connection", "", "connection identifier (required)")
	tablesCmd.MarkFlagRequired("connection")
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := vecstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	metadata, err := st.TableMetadata(tablesConnection)
	if err != nil {
		return fmt.Errorf("failed to load table metadata: %w", err)
	}

	if len(metadata) == 0 {
		fmt.Println("No embedded tables for this connection.")
		fmt.Println()
		fmt.Println("Run 'rowflow embed <rows.json>' to embed one.")
		return nil
	}

	fmt.Println(ui.Header.Render("Embedded Tables"))
	fmt.Println()

	for _, meta := range metadata {
		updated := time.Unix(meta.LastUpdated, 0).Format("2006-01-02 15:04:05")
		fmt.Printf("%s  %d rows  %s\n",
			ui.FormatTableRef(meta.SchemaName, meta.TableName),
			meta.RowCount,
			ui.Dim.Render("updated "+updated),
		)
	}

	return nil
}
