package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or initialise settings",
	Long:  `Shows the effective settings after defaults, config file, environment and flags.`,
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings to the config file",
	RunE:  runSettingsInit,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Window size: %d tokens\n", settings.Chunking.WindowSize)
	cmd.Printf("  Overlap: %d tokens\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	} else {
		cmd.Printf("  Dimensions: (from first embedding)\n")
	}
	cmd.Printf("  Timeout: %s, attempts: %d\n", settings.Embedding.Timeout, settings.Embedding.MaxAttempts)
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Build]")
	cmd.Printf("  Concurrency: %d\n", settings.Build.Concurrency)
	cmd.Printf("  Max failure rate: %.2f\n", settings.Build.MaxFailureRate)
	cmd.Printf("  Extensions: %s\n", strings.Join(settings.Build.Extensions, ", "))
	cmd.Printf("  Normalise markup: %t\n", settings.Build.Normalise)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Vectors: %s\n", settings.Index.Path)
	cmd.Printf("  Metadata: %s\n", settings.Index.ResolvedMetaPath())
	cmd.Printf("  Metric: %s\n", settings.Index.Metric)
	cmd.Printf("  Top K: %d\n", settings.TopK)
	cmd.Println()

	cmd.Println("[Cache]")
	if settings.Cache.Enabled() {
		cmd.Printf("  Redis: %s\n", strings.Join(settings.Cache.RedisAddrs, ", "))
	} else {
		cmd.Printf("  Redis: disabled\n")
	}
	cmd.Println()

	cmd.Printf("History: %s\n", settings.HistoryDir)
	return nil
}

func runSettingsInit(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	service := services.NewSettingsService(store)
	defaults := service.GetDefaults()
	if err := service.Save(&defaults); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Default settings written.")
	return nil
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
