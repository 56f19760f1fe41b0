package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperlens-ai/paperlens/internal/llm"
	"github.com/paperlens-ai/paperlens/internal/pdf"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		model      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <paper.pdf>",
		Short: "Analyze a paper PDF and print the structured summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("OPENROUTER_API_KEY is not set")
			}

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			validator := pdf.NewValidator(cfg.Upload.MaxSizeBytes)
			if err := validator.Validate(path, int64(len(content)), content); err != nil {
				return err
			}

			text, err := pdf.NewExtractor().ExtractText(content)
			if err != nil {
				return err
			}
			if len(strings.TrimSpace(text)) < 100 {
				return fmt.Errorf("could not extract enough text from %s; is it a scanned PDF?", path)
			}

			client := llm.NewClient(llm.Options{
				BaseURL:     cfg.LLM.BaseURL,
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.Model,
				Referer:     cfg.LLM.Referer,
				AppName:     cfg.LLM.AppName,
				Temperature: cfg.LLM.Temperature,
				Timeout:     cfg.LLM.RequestTimeout,
				Logger:      logger,
			})

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr))
			spin.Suffix = fmt.Sprintf(" Analyzing %s with %s...", path, cfg.LLM.Model)
			spin.Start()

			prompt := llm.BuildAnalysisPrompt(text, cfg.LLM.MaxPromptChars)
			summary, raw, err := client.Analyze(cmd.Context(), prompt)
			spin.Stop()
			if err != nil {
				return err
			}

			if jsonOutput {
				var pretty map[string]interface{}
				if err := json.Unmarshal(raw, &pretty); err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pretty)
			}

			heading := color.New(color.FgCyan, color.Bold)
			for _, section := range summary.Sections() {
				body := strings.TrimSpace(section.Body)
				if body == "" {
					continue
				}
				heading.Println(section.Title)
				fmt.Println(body)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "override the configured LLM model")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw summary JSON")

	return cmd
}
