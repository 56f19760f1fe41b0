package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersListCmd())

	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var (
		email    string
		admin    bool
		password string
	)

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("username cannot be empty")
			}

			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(raw)
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			db, err := storage.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			user := &storage.User{
				Username:     username,
				Email:        email,
				PasswordHash: hash,
				IsAdmin:      admin,
			}
			if err := storage.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			color.Green("Created user %s (admin: %v)", username, admin)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin access")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
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

			users, err := storage.NewUserRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Printf("%-24s %-30s %-6s %s\n", "USERNAME", "EMAIL", "ADMIN", "CREATED")
			for _, u := range users {
				fmt.Printf("%-24s %-30s %-6v %s\n",
					u.Username, u.Email, u.IsAdmin, u.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
