package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/support"
	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/config"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// env is what every command needs: config, a logger and an open pool.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *sql.DB
}

func open(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

// withMigrator opens a migrator for the duration of fn. Closing the migrator
// also closes the pool.
func withMigrator(cmd *cobra.Command, fn func(m *database.Migrator) error) error {
	e, err := open(cmd.Context())
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(e.db, e.cfg.Database.MigrationsPath, e.log)
	if err != nil {
		e.db.Close()
		return err
	}
	defer m.Close()
	return fn(m)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error { return m.Up() })
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error { return m.Down(steps) })
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back; 0 rolls back everything")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *database.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("version must be an integer: %w", err)
			}
			return withMigrator(cmd, func(m *database.Migrator) error { return m.Force(v) })
		},
	}

	cmd.AddCommand(up, down, version, force)
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	var req user.CreateStaffRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Role = string(authz.RoleAdmin)
			if err := httpx.Validate(req); err != nil {
				return err
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.db.Close()

			users := user.NewPostgresRepository(e.db)
			staff := support.NewService(support.NewPostgresRepository(e.db), users, e.cfg.Fees.SupportCommissionRate, e.cfg.App.PublicURL)
			u, err := user.NewService(users, staff).CreateStaff(logger.WithContext(cmd.Context(), e.log), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "admin email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (at least 8 characters)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	for _, f := range []string{"email", "password", "name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
