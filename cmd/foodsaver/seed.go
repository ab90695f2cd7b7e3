package main

import (
	"context"
	"fmt"

	"foodsaver/internal/db"
	"foodsaver/internal/seed"
	"foodsaver/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo users and donations",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		userRepo := store.NewUserRepository(pool)
		donationRepo := store.NewDonationRepository(pool)

		logrus.Info("Seeding users...")
		if err := seed.SeedFakeUsers(ctx, userRepo); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		logrus.Info("Seeding donations...")
		if err := seed.SeedFakeDonations(ctx, donationRepo); err != nil {
			return fmt.Errorf("failed to seed donations: %w", err)
		}

		logrus.Info("Seed complete")

		return nil
	},
}
