// Command paperlens-cli is the operator tool: analyze a PDF from the
// terminal, manage users and inspect analysis history without the web UI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paperlens-ai/paperlens/internal/config"
	"github.com/paperlens-ai/paperlens/internal/observability"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paperlens",
		Short: "AI-powered research paper analysis",
		Long: `PaperLens analyzes academic paper PDFs with an LLM and produces a
structured summary: abstract, motivation, contribution, methodology,
experiments, limitations and future work.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the shared config and logger for subcommands.
func loadConfig() (*config.Config, *observability.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       logLevel,
		Format:      "console",
		ServiceName: "paperlens-cli",
	})

	return cfg, logger, nil
}
