// Package cli implements the animehub admin command.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"animehub/internal/logger"
	"animehub/pkg/database"
	"animehub/pkg/utils"
)

type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "animehub",
		Short:         "Admin tasks for the animehub database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log progress")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newVisitsCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newPromoteCommand(opts))
	return cmd
}

// env is what every subcommand needs: config, a logger and an open database.
type env struct {
	cfg utils.Config
	log *zap.Logger
	db  *sql.DB
}

func (o *RootOptions) open(ctx context.Context) (*env, error) {
	cfg, err := utils.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if o.Verbose {
		if log, err = logger.New("animehub-cli", cfg.Env, cfg.Log.Level, "console"); err != nil {
			return nil, err
		}
	}

	if err := database.EnsureDataDir(cfg.Database); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := database.OpenAndMigrate(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	_ = e.log.Sync()
	_ = e.db.Close()
}
