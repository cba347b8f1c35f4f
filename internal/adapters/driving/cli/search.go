package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength bounds the chunk text shown per result in table output.
const snippetLength = 160

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Long: `Embeds the query and returns the closest chunks by descending score.
Prints a table on a terminal and a JSON array otherwise (or with --json).`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	addIndexFlags(searchCmd)
	f := searchCmd.Flags()
	f.IntP("top-k", "k", 0, "number of results (default from config)")
	f.Bool("rerank", false, "boost chunks that share words with the query")
	f.Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// addIndexFlags adds the flags locating an existing index.
func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().String("index", "", "vector file path (default from config)")
	cmd.Flags().String("meta", "", "metadata file path (default <index>.meta.json)")
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	results, err := search.Search(cmd.Context(), args[0], domain.SearchOptions{TopK: topK, Rerank: rerank})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON || !isTerminal(cmd.OutOrStdout()) {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		// Format: [N] path #file_chunk (score)
		cmd.Printf("  [%d] %s #%d (%.4f", i+1, r.SourcePath, r.FileChunkIdx, r.Score)
		if r.RerankScore != nil {
			cmd.Printf(", rerank %.4f", *r.RerankScore)
		}
		cmd.Println(")")
		cmd.Printf("      %s\n", snippet(r.Text, snippetLength))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
