package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/app"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/migrations"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/database"
)

type maintenanceRunner interface {
	NormalizeComplaints(ctx context.Context) (models.NormalizeReport, error)
	PruneNotifications(ctx context.Context) (models.RetentionReport, error)
}

// env carries the collaborators each command opens lazily.
type env struct {
	logger      *zap.Logger
	maintenance func(ctx context.Context) (maintenanceRunner, func(), error)
	migrate     func(ctx context.Context) ([]string, error)
}

func productionEnv(cfg *config.Config, logger *zap.Logger) env {
	return env{
		logger: logger,
		maintenance: func(ctx context.Context) (maintenanceRunner, func(), error) {
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			return a.Maintenance, a.Close, nil
		},
		migrate: func(ctx context.Context) ([]string, error) {
			gw, err := database.Connect(ctx, cfg.Database, logger)
			if err != nil {
				return nil, err
			}
			defer gw.Close() //nolint:errcheck
			return migrations.Apply(ctx, gw.DB(), logger)
		},
	}
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:          "complaintctl",
		Short:        "Maintenance tasks for the complaint desk database",
		SilenceUsage: true,
	}
	root.AddCommand(
		newNormalizeCmd(e),
		newPruneCmd(e),
		newMigrateCmd(e),
	)
	return root
}

func newNormalizeCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite complaint ids and references into canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, closeFn, err := e.maintenance(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := runner.NormalizeComplaints(cmd.Context())
			if err != nil {
				return fmt.Errorf("normalize complaints: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newPruneCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-notifications",
		Short: "Delete read notifications and expired export files past retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, closeFn, err := e.maintenance(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := runner.PruneNotifications(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune notifications: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newMigrateCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := e.migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
