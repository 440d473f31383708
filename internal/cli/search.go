package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/embeddings"
	"github.com/zachrizzo/RowFlow/internal/retrieval"
	"github.com/zachrizzo/RowFlow/internal/ui"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

var (
	searchConnection string
	searchSchema     string
	searchTable      string
	searchTopK       int
	searchJSON       bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search embedded rows using semantic similarity",
	Long: `Search embedded rows with a natural language query.

The query is embedded and compared against stored row vectors by cosine
similarity; the best matches are returned in descending score order.

Examples:
  # Search everything for a connection
  rowflow search "customers in berlin" --connection prod

  # Narrow to one table
  rowflow search "late shipments" --connection prod --schema public --table orders

  # More results, machine-readable
  rowflow search "refunds" --connection prod --top 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchCmd,
}

func init() {
	searchCmd.Flags().StringVar(&searchConnection, "connection", "", "connection identifier (required)")
	searchCmd.Flags().StringVar(&searchSchema, "schema", "", "limit to a schema")
	searchCmd.Flags().StringVar(&searchTable, "table", "", "limit to a table")
	searchCmd.Flags().IntVar(&searchTopK, "top", 0, "maximum number of results (default 5)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.MarkFlagRequired("connection")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := args[0]
	cfg := config.Get()

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

	matches, err := engine.Search(ctx, searchConnection, searchSchema, searchTable, query, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return json.NewEncoder(os.Stdout).Encode(matches)
	}

	printMatches(matches)
	return nil
}

// printMatches renders search results for the terminal.
func printMatches(matches []vecstore.SearchMatch) {
	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return
	}

	for i, m := range matches {
		fmt.Printf("%s %s %s %s\n",
			ui.ResultHeader.Render(fmt.Sprintf("%d.", i+1)),
			ui.FormatTableRef(m.Schema, m.Table),
			ui.Dim.Render("row "+m.RowReference),
			ui.FormatScore(m.Score),
		)
		fmt.Println(ui.ResultContent.Render(m.Content))
		fmt.Println()
	}
}
