package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/courier/internal/config"
	"github.com/sadopc/courier/internal/repository/postgres"
	"github.com/sadopc/courier/internal/repository/sqlite"
)

// migrateCmd ensures every table the repository/postgres and
// repository/sqlite backends own exists, without starting the server.
// Both Open calls already run their CREATE TABLE IF NOT EXISTS schema
// on every connect (ensureSchema/createTables); this command exists so
// that step can run once, ahead of a rolling deploy, rather than racing
// multiple courier-server replicas through it on first request.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the configured storage backends' schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if cfg.PostgresDSN != "" {
				pg, err := postgres.Open(context.Background(), cfg.PostgresDSN)
				if err != nil {
					return fmt.Errorf("postgres migrate: %w", err)
				}
				defer pg.Close()
				fmt.Println("postgres schema up to date")
			} else {
				fmt.Println("postgres_dsn not set, skipping (collections/folders/requests/environments/globals will use the in-memory store)")
			}

			db, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("sqlite migrate: %w", err)
			}
			defer db.Close()
			fmt.Println("sqlite schema up to date")

			return nil
		},
	}
}
