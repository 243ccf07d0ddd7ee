package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Weekly contest cycle",
}

var cycleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Close, score and reopen the weekly contest now",
	Long: `Runs the weekly cycle once, the same work the weekly_cycle job does:

  1. close the open contest
  2. evaluate it and any closed contest with unprocessed predictions
  3. recompute contest statistics
  4. reset weekly points
  5. open the next contest

Example:
  go run ./cmd/waveger cycle run
  go run ./cmd/waveger cycle run --json`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
	cycleCmd.AddCommand(cycleRunCmd)
	cycleRunCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
}

func runCycle(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("weekly cycle failed: %w", err)
	}
	if jsonOutput {
		return printJSON(report)
	}

	printHeader("Weekly Cycle " + report.RunID)
	if report.ClosedContestID != nil {
		fmt.Printf("  Closed    : #%d\n", *report.ClosedContestID)
	} else {
		fmt.Println("  Closed    : (no open contest)")
	}
	if report.Evaluation != nil {
		fmt.Println(ruleLight)
		printEvaluation(report.Evaluation)
	}
	if report.Summary != nil {
		fmt.Println(ruleLight)
		printSummary(report.Summary)
	}
	fmt.Println(ruleLight)
	fmt.Printf("  Weekly reset: %d users\n", report.WeeklyReset)
	if report.NextContest != nil {
		printContest(report.NextContest)
	}
	fmt.Printf("  Duration  : %s\n", report.Duration)
	printFooter()
	return nil
}
