package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

var buildCmd = &cobra.Command{
	Use:   "build <directory>",
	Short: "Build a vector index from a directory of documents",
	Long: `Walks the directory, splits every matching document into overlapping
token windows, embeds each window and writes the vector and metadata files.

The previous index is replaced only when the new one passes its integrity
checks. Every run is recorded in the build history.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringP("output", "o", "", "vector file path (default from config)")
	f.String("meta-output", "", "metadata file path (default <output>.meta.json)")
	f.Int("window-size", domain.DefaultWindowSize, "tokens per chunk")
	f.Int("overlap", domain.DefaultOverlap, "tokens shared by consecutive chunks")
	f.String("provider", string(domain.AIProviderOllama), "embedding provider: ollama or openai")
	f.String("model", domain.DefaultEmbeddingModel, "embedding model")
	f.String("embed-url", "", "embedding service base URL")
	f.Int("concurrency", domain.DefaultConcurrency, "in-flight embedding calls")
	f.Float64("max-failure-rate", domain.DefaultMaxFailureRate, "abort when this fraction of chunks fails")
	f.String("extensions", ".md,.markdown", "comma-separated file extensions to index")
	f.Bool("normalise", false, "strip Markdown and HTML markup before chunking")
	f.Bool("allow-empty", false, "write an empty index when no documents match")
	f.String("metric", domain.MetricCosine.String(), "similarity metric: cosine or euclidean")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	var source driven.DocumentSource = filesystem.New(args[0], settings.Build.Extensions)
	if settings.Build.Normalise {
		source = normalisers.NewSource(source, normalisers.Defaults())
	}
	docs, err := source.Documents(ctx)
	if err != nil {
		return err
	}
	allowEmpty, err := cmd.Flags().GetBool("allow-empty")
	if err != nil {
		return fmt.Errorf("getting allow-empty flag: %w", err)
	}
	if len(docs) == 0 && !allowEmpty {
		return fmt.Errorf("%w: no documents matching %v under %s",
			domain.ErrInvalidInput, settings.Build.Extensions, args[0])
	}
	logger.Info("Found %d documents under %s", len(docs), args[0])

	chunks, err := chunker.New(
		chunker.WithChunkSize(settings.Chunking.WindowSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(settings, ai.Options{})
	if err != nil {
		return err
	}
	defer embedder.Close()
	if err := pingEmbedder(ctx, embedder); err != nil {
		return err
	}

	builder, err := services.NewIndexBuilder(chunks, embedder, flat.Factory{}, newIndexStore(settings),
		services.BuilderConfig{
			Metric:         settings.Index.Metric,
			Concurrency:    settings.Build.Concurrency,
			MaxFailureRate: settings.Build.MaxFailureRate,
		})
	if err != nil {
		return err
	}

	history, err := sqlite.NewStore(settings.HistoryDir)
	if err != nil {
		logger.Warn("Build history unavailable: %v", err)
	} else {
		defer history.Close()
		builder.SetReportStore(history.BuildReportStore())
	}

	report, err := builder.Build(ctx, docs)
	if report != nil {
		printReport(cmd, report)
	}
	if err == nil {
		cmd.Printf("  Metadata:  %s\n", settings.Index.ResolvedMetaPath())
	}
	return err
}

func printReport(cmd *cobra.Command, r *domain.BuildReport) {
	cmd.Printf("Build %s %s in %s\n", r.ID, r.Status, r.Duration().Round(time.Millisecond))
	cmd.Printf("  Documents: %d\n", r.Documents)
	cmd.Printf("  Chunks:    %d\n", r.Chunks)
	cmd.Printf("  Records:   %d\n", r.Records)
	cmd.Printf("  Failures:  %d (%.1f%%)\n", len(r.Failures), 100*r.FailureRate())
	for _, f := range r.Failures {
		cmd.Printf("    %s #%d: %s\n", f.SourcePath, f.FileChunkIdx, f.Error)
	}
	if r.Status != domain.BuildStatusSucceeded {
		return
	}
	cmd.Printf("  Index:     %s\n", r.IndexID)
	cmd.Printf("  Vectors:   %s\n", r.IndexPath)
}
