package main

import (
	"context"

	"github.com/spf13/cobra"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print overview statistics for the warehouse",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Overview.Stats(ctx, refresh)
		if err != nil {
			return err
		}
		return printJSON(stdout(), stats)
	},
}

func init() {
	overviewCmd.Flags().Bool("refresh", false, "bypass the shared cache")
	rootCmd.AddCommand(overviewCmd)
}
