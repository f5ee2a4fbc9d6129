package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/config"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository/sqlstore"
	"github.com/sakif/gitfolio/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator tools",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *sqlstore.DB, logger *slog.Logger) error {
			users, err := service.NewUserService(db, logger).List(cmd.Context())
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		})
	},
}

var portfolioEmail string

var adminPortfoliosCmd = &cobra.Command{
	Use:   "portfolios",
	Short: "List portfolios, optionally for one owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *sqlstore.DB, logger *slog.Logger) error {
			// Share links are not shown, so the base URL is irrelevant here.
			list, err := service.NewPortfolioService(db, "", logger).List(cmd.Context(), portfolioEmail)
			if err != nil {
				return err
			}
			renderPortfolios(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var hashCost int

var adminHashSecretCmd = &cobra.Command{
	Use:   "hash-secret [secret]",
	Short: "Print a bcrypt hash for auth.api_secret_hash",
	Long: "Hashes the API secret given as an argument or, when absent, read from\n" +
		"the first line of stdin. Store the output in auth.api_secret_hash.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var secret string
		if len(args) == 1 {
			secret = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("reading secret: %w", err)
			}
			secret = strings.TrimRight(line, "\r\n")
		}

		hash, err := auth.HashSecret(secret, hashCost)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

func init() {
	adminPortfoliosCmd.Flags().StringVar(&portfolioEmail, "email", "", "only portfolios owned by this email")
	adminHashSecretCmd.Flags().IntVar(&hashCost, "cost", auth.DefaultHashCost, "bcrypt cost")

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminPortfoliosCmd)
	adminCmd.AddCommand(adminHashSecretCmd)
}

// withStore loads store-only config, opens the database and hands it to fn.
// Logs go to stderr so tables on stdout stay clean.
func withStore(cmd *cobra.Command, fn func(*sqlstore.DB, *slog.Logger) error) error {
	cfg, err := config.LoadForStore(configFile)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := openStore(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db, logger)
}

func renderUsers(w io.Writer, users []model.User) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Username", "Email", "Name", "Created"})
	for _, u := range users {
		table.Append([]string{u.ID, u.Username, u.Email, u.Name, u.CreatedAt.Format(time.RFC3339)})
	}
	table.Render()
}

func renderPortfolios(w io.Writer, list []model.Portfolio) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"GitHub", "Owner", "Active", "URL", "Created"})
	for _, p := range list {
		table.Append([]string{
			p.GitHubUsername,
			p.OwnerEmail,
			strconv.FormatBool(p.IsActive),
			p.PublicURL,
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}
