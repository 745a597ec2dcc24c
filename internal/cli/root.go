// Package cli implements the gallery command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/msomdec/gallery/internal/config"
	"github.com/msomdec/gallery/internal/domain"
	"github.com/msomdec/gallery/internal/repository/sqlite"
	"github.com/msomdec/gallery/internal/storage/disk"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "gallery",
		Short: "Media gallery server with non-destructive edit history",
		Long: `gallery stores photos and videos and keeps every crop, rotate, resize
and flip as a separate edition, so any earlier version can be restored.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GALLERY_CONFIG"), "path to a TOML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newMigrateCmd(loadConfig),
		newVersionsCmd(loadConfig),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogger(cfg *config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logOpts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	)))
	return nil
}

// openDB opens and migrates the database.
func openDB(cmd *cobra.Command, cfg *config.Config) (*sqlite.DB, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// openFileStore selects where media bytes live.
func openFileStore(cfg *config.Config, db *sqlite.DB) (domain.FileStore, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return db.FileStore(), nil
	case config.BackendDisk:
		return disk.New(cfg.StorageRoot)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
