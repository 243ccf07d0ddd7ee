package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/internal/chart"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Fetch and inspect chart snapshots",
}

var (
	chartFetchCmd = &cobra.Command{
		Use:   "fetch [chart_id]",
		Short: "Fetch one weekly snapshot (stored on first fetch)",
		Long: `Fetches the chart of the release week containing --date.

Example:
  go run ./cmd/waveger chart fetch hot-100
  go run ./cmd/waveger chart fetch billboard-200 --date 2025-03-11 --top 20`,
		Args: cobra.ExactArgs(1),
		RunE: runChartFetch,
	}

	chartWeeksCmd = &cobra.Command{
		Use:   "weeks [chart_id]",
		Short: "List stored weeks of a chart",
		Args:  cobra.ExactArgs(1),
		RunE:  runChartWeeks,
	}
)

var (
	chartDate  string
	chartTop   int
	chartLimit int
)

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartFetchCmd, chartWeeksCmd)
	chartFetchCmd.Flags().StringVar(&chartDate, "date", "", "date inside the wanted week (YYYY-MM-DD, default today)")
	chartFetchCmd.Flags().IntVar(&chartTop, "top", 10, "entries to print")
	chartFetchCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the snapshot as JSON")
	chartWeeksCmd.Flags().IntVar(&chartLimit, "limit", 20, "number of weeks")
}

func runChartFetch(cmd *cobra.Command, args []string) error {
	chartID := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.rules.Chart(chartID); !ok {
		return fmt.Errorf("unknown chart %q (configured: %v)", chartID, a.rules.ChartIDs())
	}

	date := time.Now().In(a.rules.Location())
	if chartDate != "" {
		date, err = time.Parse("2006-01-02", chartDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}
	week := chart.AlignToRelease(date, a.rules.ReleaseWeekday())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := a.snapshots.FetchSnapshot(ctx, chartID, week)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(snap)
	}

	printHeader(fmt.Sprintf("%s · week of %s (%d entries)", chartID, formatDate(snap.Date), len(snap.Entries)))
	for i, e := range snap.Entries {
		if i >= chartTop {
			break
		}
		last := "  -"
		if e.LastWeekPosition != nil {
			last = fmt.Sprintf("%3d", *e.LastWeekPosition)
		}
		fmt.Printf("  %3d  (%s)  %-36.36s %s\n", e.Position, last, e.Name, e.Artist)
	}
	printFooter()
	return nil
}

func runChartWeeks(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	weeks, err := a.charts.Weeks(context.Background(), args[0], chartLimit)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		fmt.Printf("No stored weeks for %s\n", args[0])
		return nil
	}
	fmt.Printf("Stored weeks for %s:\n", args[0])
	for _, w := range weeks {
		fmt.Printf("  - %s\n", formatDate(w))
	}
	return nil
}
