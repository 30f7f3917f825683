package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [objective]",
	Short: "Interpret an objective and preview the matching segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "output the full analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Segments.Analyze(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(stdout(), res)
	}

	coo := res.CampaignObjective
	md := res.SegmentPreview
	fmt.Fprintf(stdout(), "Goal: %s  Behavior: %s  Subgroup: %s  Window: %s\n",
		coo.CampaignGoal, coo.TargetBehavior, orDash(coo.TargetSubgroup), orDash(coo.TimeConstraint))
	fmt.Fprintf(stdout(), "Segment: %d customers, avg CLV %.3f, uplift %.3f, ROI %s\n\n",
		md.EstimatedSize, md.AvgCLVScore, md.PredictedUplift, md.PredictedROI)

	tw := tabwriter.NewWriter(stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIGGER\tUPLIFT\tCONFIDENCE")
	for _, t := range res.TriggerCandidates {
		fmt.Fprintf(tw, "%s\t%.3f\t%.1f%%\n", t.TriggerID, t.PredictedUplift, t.ConfidenceScore*100)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
