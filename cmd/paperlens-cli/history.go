package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperlens-ai/paperlens/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List analyzed papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := storage.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			analysisRepo := storage.NewAnalysisRepository(db)

			var analyses []*storage.PaperAnalysis
			if username != "" {
				user, err := storage.NewUserRepository(db).GetByUsername(cmd.Context(), username)
				if err != nil {
					return fmt.Errorf("user %s: %w", username, err)
				}
				analyses, err = analysisRepo.ListByUser(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
			} else {
				analyses, err = analysisRepo.ListAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			if len(analyses) == 0 {
				fmt.Println("No analyses found.")
				return nil
			}

			bold := color.New(color.Bold)
			bold.Printf("%-36s %-40s %-8s %s\n", "ID", "TITLE", "SIZE", "ANALYZED")
			for _, a := range analyses {
				title := a.DisplayTitle()
				if len(title) > 38 {
					title = title[:35] + "..."
				}
				fmt.Printf("%-36s %-40s %-8s %s\n",
					a.ID, title,
					fmt.Sprintf("%.1fMB", a.FileSizeMB()),
					a.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "only show analyses for this user")

	return cmd
}
