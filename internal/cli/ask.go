package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zachrizzo/RowFlow/internal/config"
	"github.com/zachrizzo/RowFlow/internal/embeddings"
	"github.com/zachrizzo/RowFlow/internal/llm"
	"github.com/zachrizzo/RowFlow/internal/retrieval"
	"github.com/zachrizzo/RowFlow/internal/ui"
	"github.com/zachrizzo/RowFlow/internal/vecstore"
)

var (
	askConnection string
	askSchema     string
	askTable      string
	askTopK       int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question grounded in embedded rows",
	Long: `Retrieve the most relevant embedded rows for a question and generate
an answer grounded in them.

Examples:
  rowflow ask "which orders shipped late" --connection prod
  rowflow ask "who are our berlin customers" --connection prod --table customers`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConnection, "connection", "", "connection identifier (required)")
	askCmd.Flags().StringVar(&askSchema, "schema", "", "limit to a schema")
	askCmd.Flags().StringVar(&askTable, "table", "", "limit to a table")
	askCmd.Flags().IntVar(&askTopK, "top", 0, "retrieved rows to ground the answer on (default 5)")
	askCmd.MarkFlagRequired("connection")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := vecstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	endpoint := runtimeEndpoint(cfg)

	embedder, err := embeddings.NewService(cfg, endpoint)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	engine := retrieval.New(st, embedder, cfg)

	matches, err := engine.Search(ctx, askConnection, askSchema, askTable, question, askTopK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	llmService, err := llm.NewService(cfg, endpoint)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	log.Debug("Generating answer", "model", llmService.ModelName(), "sources", len(matches))

	qa := llm.NewQAService(llmService)
	result, err := qa.Answer(ctx, question, matches, llm.DefaultQAOptions())
	if err != nil {
		return fmt.Errorf("failed to generate answer: %w", err)
	}

	fmt.Println(renderMarkdown(result.Answer))

	if len(result.Sources) > 0 {
		fmt.Println(ui.SectionTitle.Render("Sources"))
		for i, m := range result.Sources {
			fmt.Printf("  [%d] %s %s %s\n",
				i+1,
				ui.FormatTableRef(m.Schema, m.Table),
				ui.Dim.Render("row "+m.RowReference),
				ui.FormatScore(m.Score),
			)
		}
	}

	return nil
}

// renderMarkdown renders markdown content using glamour, falling back to the
// raw text if rendering fails.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
