package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/internal/contracts"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Contest statistics",
}

var (
	statsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show stored statistics of a contest",
		RunE:  runStatsShow,
	}

	statsRecomputeCmd = &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild statistics of a contest from its results",
		RunE:  runStatsRecompute,
	}

	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Show a contest or all-time leaderboard",
		Long: `Without --contest the all-time leaderboard is shown.

Example:
  go run ./cmd/waveger leaderboard
  go run ./cmd/waveger leaderboard --contest 12 --limit 20`,
		RunE: runLeaderboard,
	}
)

var (
	statsContestID int64
	boardLimit     int
)

func init() {
	rootCmd.AddCommand(statsCmd, leaderboardCmd)
	statsCmd.AddCommand(statsShowCmd, statsRecomputeCmd)
	statsCmd.PersistentFlags().Int64Var(&statsContestID, "contest", 0, "contest id (required)")
	_ = statsCmd.MarkPersistentFlagRequired("contest")
	statsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")

	leaderboardCmd.Flags().Int64Var(&statsContestID, "contest", 0, "contest id (0 = all time)")
	leaderboardCmd.Flags().IntVar(&boardLimit, "limit", 10, "number of entries (max 100)")
	leaderboardCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func runStatsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.stats.ContestStats(context.Background(), statsContestID)
	if err != nil {
		return err
	}
	return showSummary(summary)
}

func runStatsRecompute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.stats.Recompute(context.Background(), statsContestID)
	if err != nil {
		return err
	}
	return showSummary(summary)
}

func showSummary(summary *contracts.ContestSummary) error {
	if jsonOutput {
		return printJSON(summary)
	}
	printHeader(fmt.Sprintf("Contest #%d Statistics", summary.ContestID))
	printSummary(summary)
	printFooter()
	return nil
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	scope := contracts.LeaderboardScope{ContestID: statsContestID}
	entries, err := a.stats.Leaderboard(context.Background(), scope, boardLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(entries)
	}

	title := "All-time Leaderboard"
	if statsContestID != 0 {
		title = fmt.Sprintf("Contest #%d Leaderboard", statsContestID)
	}
	printHeader(title)
	printLeaderboard(entries)
	printFooter()
	return nil
}
