package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/config"
	"github.com/sakif/gitfolio/internal/github"
	"github.com/sakif/gitfolio/internal/logging"
	"github.com/sakif/gitfolio/internal/middleware"
	"github.com/sakif/gitfolio/internal/repository/sqlstore"
	"github.com/sakif/gitfolio/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadForStore(configFile)
		if err != nil {
			return err
		}
		logger, closer, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer closer.Close()

		db, err := openStore(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info("schema is up to date", slog.String("driver", string(db.Dialect())))
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	tokens, err := auth.NewTokenService(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	keys, err := auth.NewAPIKeyVerifier(cfg.Auth.APISecret, cfg.Auth.APISecretHash)
	if err != nil {
		return err
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("github.token not set; GitHub requests are unauthenticated and heavily rate limited")
	}
	gh := github.NewClient(github.Options{
		BaseURL: cfg.GitHub.APIURL,
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHub.Timeout,
	})

	db, err := openStore(cmd.Context(), cfg.Database)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		return err
	}

	srv, err := server.New(server.Config{
		Port:            cfg.HTTP.Port,
		BaseURL:         cfg.Portfolio.BaseURL,
		SecureCookies:   cfg.Auth.CookieSecure,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, server.Deps{
		DB:      db,
		Tokens:  tokens,
		APIKeys: keys,
		GitHub:  gh,
		Metrics: middleware.NewMetrics(cfg.Metrics.Namespace),
	}, logger)
	if err != nil {
		db.Close()
		return err
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}

// openStore opens the configured database, creating the directory of a
// SQLite file first.
func openStore(ctx context.Context, opts sqlstore.Options) (*sqlstore.DB, error) {
	if opts.Driver == sqlstore.DialectSQLite && isFilePath(opts.DSN) {
		dir := filepath.Dir(opts.DSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	return sqlstore.Open(ctx, opts)
}

func isFilePath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}
