package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aethersegment/backend/internal/config"
	"github.com/aethersegment/backend/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the warehouse schema and load a generated dataset into Postgres",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().Uint64("seed", 42, "generator seed")
	seedCmd.Flags().Int("customers", 10000, "number of customers")
	seedCmd.Flags().Int("carts", 1500, "number of carts")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	opts := db.DefaultFixture(time.Now().UTC())
	opts.Seed, _ = cmd.Flags().GetUint64("seed")
	opts.Customers, _ = cmd.Flags().GetInt("customers")
	opts.Carts, _ = cmd.Flags().GetInt("carts")

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	ds := db.Generate(opts)
	if err := store.Seed(ctx, ds); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Fprintf(stdout(), "seeded %d customers, %d carts, %d transactions, %d events\n",
		len(ds.Customers), len(ds.Carts), len(ds.Transactions), len(ds.Events))
	return nil
}
