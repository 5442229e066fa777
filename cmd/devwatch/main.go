// Command devwatch watches a fleet of network devices, pushes liveness
// transitions to connected viewers and e-mails users who opted in.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/config"
	"github.com/HerbHall/devwatch/internal/inventory"
	"github.com/HerbHall/devwatch/internal/store"
	"github.com/HerbHall/devwatch/internal/version"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "devwatch",
		Short:        "Real-time device liveness monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newWatchCmd(&configPath),
		newSeedCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// bootstrap loads configuration (before the logger, so log level/format can
// be configured) and builds the logger.
func bootstrap(configPath string) (*config.Settings, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	settings, err := config.Decode(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Viper())
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	if f := cfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}
	return settings, logger, nil
}

// openInventory opens the SQLite database, guards against a newer schema
// and applies inventory migrations.
func openInventory(ctx context.Context, path string, logger *zap.Logger) (*store.SQLiteStore, *inventory.SQLStore, error) {
	if path == "" {
		path = "devwatch.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := store.New(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := db.Migrate(ctx, "inventory", inventory.Migrations()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate inventory: %w", err)
	}

	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", path))
	return db, inventory.NewSQLStore(db.DB()), nil
}
