// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Semantic search over a directory of articles",
	Long: `sercha-rag builds a vector index from a directory of Markdown documents
and answers natural-language queries against it, from the command line,
an interactive terminal UI, or as an MCP tool for AI assistants.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.sercha-rag/config.toml, .yaml also accepted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx. Results go to stdout and
// diagnostics to stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	if err := logger.SetLevel(logLevel); err != nil {
		return err
	}
	if verbose {
		logger.SetVerbose(true)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}
