package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/citegraph/internal/database"
)

const migrateConnectTimeout = 30 * time.Second

type migrateOptions struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

type migrateAction int

const (
	actionNone migrateAction = iota
	actionUp
	actionDown
	actionSteps
	actionVersion
	actionForce
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the export database schema",
		Long: `Migrate applies or rolls back the SQL migrations that create the papers,
authors, venues and paper_keywords tables. Exactly one action is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.up, "up", false, "Run all pending migrations")
	f.BoolVar(&opts.down, "down", false, "Roll back all migrations")
	f.IntVar(&opts.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	f.BoolVar(&opts.version, "version", false, "Print the current migration version")
	f.IntVar(&opts.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	f.StringVar(&opts.path, "path", "", "Override the migrations directory path")

	return cmd
}

// action returns the single requested action.
func (o *migrateOptions) action() (migrateAction, error) {
	var actions []migrateAction
	if o.up {
		actions = append(actions, actionUp)
	}
	if o.down {
		actions = append(actions, actionDown)
	}
	if o.steps != 0 {
		actions = append(actions, actionSteps)
	}
	if o.version {
		actions = append(actions, actionVersion)
	}
	if o.force >= 0 {
		actions = append(actions, actionForce)
	}

	switch len(actions) {
	case 0:
		return actionNone, fmt.Errorf("no action specified: use one of --up, --down, --steps N, --version, --force V")
	case 1:
		return actions[0], nil
	default:
		return actionNone, fmt.Errorf("specify only one action at a time")
	}
}

func runMigrate(cmd *cobra.Command, root *rootOptions, opts *migrateOptions) error {
	action, err := opts.action()
	if err != nil {
		return err
	}

	a, err := loadApp(root, "migrate")
	if err != nil {
		return err
	}
	logger := a.logger

	migrationDir := a.cfg.Database.MigrationPath
	if opts.path != "" {
		migrationDir = opts.path
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateConnectTimeout)
	defer cancel()

	db, err := database.New(ctx, &a.cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch action {
	case actionUp:
		err = migrator.Up()
	case actionDown:
		err = migrator.Down()
	case actionSteps:
		err = migrator.Steps(opts.steps)
	case actionForce:
		err = migrator.Force(opts.force)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	printVersion(migrator, logger)
	return nil
}

func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
