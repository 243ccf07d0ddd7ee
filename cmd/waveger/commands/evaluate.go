package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the unprocessed predictions of one contest",
	Long: `Evaluates every unprocessed prediction of a contest against its release
week charts, credits users and recomputes contest statistics.
Already processed predictions are never scored twice.

Example:
  go run ./cmd/waveger evaluate --contest 12`,
	RunE: runEvaluate,
}

var evaluateContestID int64

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().Int64Var(&evaluateContestID, "contest", 0, "contest id (required)")
	_ = evaluateCmd.MarkFlagRequired("contest")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.processor.EvaluateContest(ctx, evaluateContestID)
	if err != nil {
		return fmt.Errorf("evaluate contest %d: %w", evaluateContestID, err)
	}
	summary, err := a.stats.Recompute(ctx, evaluateContestID)
	if err != nil {
		return fmt.Errorf("recompute stats: %w", err)
	}

	printHeader(fmt.Sprintf("Evaluation #%d", evaluateContestID))
	printEvaluation(report)
	fmt.Println(ruleLight)
	printSummary(summary)
	printFooter()
	return nil
}
