package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var contestCmd = &cobra.Command{
	Use:   "contest",
	Short: "Inspect and manage weekly contests",
}

var (
	contestCurrentCmd = &cobra.Command{
		Use:   "current",
		Short: "Show the open contest",
		RunE:  runContestCurrent,
	}

	contestInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Open a contest if none is open",
		RunE:  runContestInit,
	}

	contestCloseCmd = &cobra.Command{
		Use:   "close",
		Short: "Close the open contest without scoring it",
		Long: `Closes the open contest. Its predictions stay unprocessed and are
scored by the next cycle run or by "evaluate --contest".`,
		RunE: runContestClose,
	}

	contestListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent contests",
		RunE:  runContestList,
	}
)

var contestLimit int

func init() {
	rootCmd.AddCommand(contestCmd)
	contestCmd.AddCommand(contestCurrentCmd, contestInitCmd, contestCloseCmd, contestListCmd)
	contestListCmd.Flags().IntVar(&contestLimit, "limit", 10, "number of contests")
	contestCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func runContestCurrent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.contests.Current(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(c)
	}
	printHeader("Current Contest")
	printContest(c)
	printFooter()
	return nil
}

func runContestInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, created, err := a.contests.EnsureOpen(context.Background())
	if err != nil {
		return err
	}
	if created {
		fmt.Println("✅ Contest opened")
	} else {
		fmt.Println("ℹ️  A contest is already open")
	}
	printContest(c)
	return nil
}

func runContestClose(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, ok, err := a.contests.CloseActive(context.Background())
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("ℹ️  No open contest")
		return nil
	}
	fmt.Printf("✅ Contest #%d closed\n", id)
	return nil
}

func runContestList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.contests.List(context.Background(), contestLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(list)
	}

	printHeader(fmt.Sprintf("Contests (%d)", len(list)))
	fmt.Printf("  %5s  %-7s %-10s %-10s %-10s %6s %7s\n", "ID", "STATUS", "START", "END", "RELEASE", "PREDS", "POINTS")
	for _, c := range list {
		fmt.Printf("  %5d  %-7s %-10s %-10s %-10s %6d %7d\n",
			c.ID, c.Status, formatDate(c.StartDate), formatDate(c.EndDate),
			formatDate(c.ChartReleaseDate), c.TotalPredictions, c.TotalPointsAwarded)
	}
	printFooter()
	return nil
}
