package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aethersegment/backend/internal/models"
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Preview extra filters on a structured objective",
	Long:  `Reads a campaign objective JSON file (as returned by analyze --json under campaign_objective_object) and reports the impact of each filter.`,
	RunE:  runRefine,
}

func init() {
	refineCmd.Flags().String("coo", "", "path to a campaign objective JSON file")
	refineCmd.Flags().String("country", "", "keep customers in this country")
	refineCmd.Flags().String("city", "", "keep customers in this city")
	refineCmd.Flags().Float64("clv-min", -1, "minimum CLV score (0-1)")
	refineCmd.Flags().Float64("cart-min", -1, "minimum cart value")
	refineCmd.Flags().String("trigger", "", "keep customers sensitive to this trigger")
	_ = refineCmd.MarkFlagRequired("coo")
	rootCmd.AddCommand(refineCmd)
}

func runRefine(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	path, _ := cmd.Flags().GetString("coo")

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading objective: %w", err)
	}
	var coo models.CampaignObjective
	if err := json.Unmarshal(raw, &coo); err != nil {
		return fmt.Errorf("decoding objective %s: %w", path, err)
	}

	var f models.RefinementFilters
	f.LocationCountry, _ = cmd.Flags().GetString("country")
	f.LocationCity, _ = cmd.Flags().GetString("city")
	if v, _ := cmd.Flags().GetFloat64("clv-min"); v >= 0 {
		f.CLVMin = &v
	}
	if v, _ := cmd.Flags().GetFloat64("cart-min"); v >= 0 {
		f.CartValueMin = &v
	}
	trigger, _ := cmd.Flags().GetString("trigger")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Segments.PreviewRefinement(ctx, coo, f, trigger)
	if err != nil {
		return err
	}
	return printJSON(stdout(), res)
}
