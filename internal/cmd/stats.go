package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/placetrack/placetrack/internal/core"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print placement statistics",
	Long:  "Print the dashboard placement statistics: totals, placement rate, per-branch breakdown and CGPA distribution.",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().String("output-format", "table", "Output format: table, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return err
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported output format: %s (use 'table' or 'json')", format)
	}

	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	stats, err := db.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	renderStats(stats)
	return nil
}

func renderStats(stats *core.DashboardStats) {
	overview := table.NewWriter()
	overview.SetOutputMirror(os.Stdout)
	overview.SetStyle(table.StyleRounded)
	overview.SetTitle("Placement Overview")
	overview.AppendRows([]table.Row{
		{"Total students", stats.TotalStudents},
		{"Placed students", stats.PlacedStudents},
		{"Placement rate", fmt.Sprintf("%.2f%%", stats.PlacementRate)},
		{"Total drives", stats.TotalDrives},
		{"Open drives", stats.OpenDrives},
		{"Average package", fmt.Sprintf("%.2f LPA", stats.AveragePackage)},
	})
	overview.Render()

	if len(stats.BranchStats) > 0 {
		branches := table.NewWriter()
		branches.SetOutputMirror(os.Stdout)
		branches.SetStyle(table.StyleRounded)
		branches.SetTitle("By Branch")
		branches.AppendHeader(table.Row{"Branch", "Total", "Placed", "Rate"})
		for _, b := range stats.BranchStats {
			branches.AppendRow(table.Row{b.Branch, b.Total, b.Placed, fmt.Sprintf("%.2f%%", b.Percent)})
		}
		branches.Render()
	}

	if len(stats.CGPADistribution) > 0 {
		buckets := table.NewWriter()
		buckets.SetOutputMirror(os.Stdout)
		buckets.SetStyle(table.StyleRounded)
		buckets.SetTitle("CGPA Distribution")
		buckets.AppendHeader(table.Row{"Range", "Students"})
		for _, bucket := range stats.CGPADistribution {
			buckets.AppendRow(table.Row{bucket.Label, bucket.Count})
		}
		buckets.Render()
	}
}
