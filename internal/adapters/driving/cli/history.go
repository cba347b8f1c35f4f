package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history [build-id]",
	Short: "List recent builds or show one build",
	Long: `Lists recent build runs, newest first. With a build ID, shows that run
including every chunk that failed to embed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of builds to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	store, err := sqlite.NewStore(settings.HistoryDir)
	if err != nil {
		return fmt.Errorf("opening build history: %w", err)
	}
	defer store.Close()
	reports := store.BuildReportStore()

	if len(args) == 1 {
		report, err := reports.GetReport(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no build %s", domain.ErrInvalidInput, args[0])
		}
		if err != nil {
			return err
		}
		printReport(cmd, report)
		if report.Error != "" {
			cmd.Printf("  Error:     %s\n", report.Error)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	list, err := reports.ListReports(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		cmd.Println("No builds recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tDOCS\tCHUNKS\tRECORDS\tFAILED")
	for i := range list {
		r := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status,
			r.Documents, r.Chunks, r.Records, len(r.Failures))
	}
	return w.Flush()
}
