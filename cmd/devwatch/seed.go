package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/seed"
)

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo groups, devices and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			db, inv, err := openInventory(ctx, settings.Database.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := seed.SeedDemoNetwork(ctx, inv)
			if err != nil {
				return err
			}
			logger.Info("demo data seeded", zap.Int("groups", res.Groups), zap.Int("devices", res.Devices), zap.Int("users", res.Users))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d groups, %d devices, %d users\n", res.Groups, res.Devices, res.Users)
			return nil
		},
	}
}
