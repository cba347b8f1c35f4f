package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface over a built index.

Controls:
  Enter        - Search / open the selected result
  ↑/k, ↓/j     - Navigate results
  r            - Toggle reranking and repeat the last query
  n            - New search
  [ / ]        - Previous / next chunk in the chunk view
  ctrl+p/n     - Recall earlier queries
  Esc          - Back
  q            - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	addIndexFlags(tuiCmd)
	tuiCmd.Flags().IntP("top-k", "k", 0, "number of results per query (default from config)")
	tuiCmd.Flags().Bool("rerank", false, "start with reranking on")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	search, closeSearch, err := openSearch(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer closeSearch()

	topK, _ := cmd.Flags().GetInt("top-k")
	if !cmd.Flags().Changed("top-k") {
		topK = settings.TopK
	}
	rerank, _ := cmd.Flags().GetBool("rerank")

	app, err := tui.NewApp(&tui.Ports{Search: search, Index: search}, tui.Options{TopK: topK, Rerank: rerank})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	// Log lines would tear the alternate screen.
	if !logger.IsVerbose() {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(cmd.ErrOrStderr())
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
