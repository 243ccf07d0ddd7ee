package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wonny/waveger/backend/internal/contracts"
)

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════"
	ruleLight = "───────────────────────────────────────────────────────────"
)

var jsonOutput bool

// printHeader prints a boxed section title
func printHeader(title string) {
	fmt.Println()
	fmt.Println(ruleHeavy)
	fmt.Printf("  %s\n", title)
	fmt.Println(ruleLight)
}

func printFooter() {
	fmt.Println(ruleHeavy)
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func printContest(c *contracts.Contest) {
	fmt.Printf("  Contest   : #%d (%s)\n", c.ID, c.Status)
	fmt.Printf("  Window    : %s ~ %s\n", formatDate(c.StartDate), formatDate(c.EndDate))
	fmt.Printf("  Release   : %s\n", formatDate(c.ChartReleaseDate))
	if c.ClosedAt != nil {
		fmt.Printf("  Closed at : %s\n", c.ClosedAt.Format(time.RFC3339))
	}
	if c.TotalPredictions > 0 {
		fmt.Printf("  Results   : %d predictions, %d correct, %d points\n",
			c.TotalPredictions, c.CorrectPredictions, c.TotalPointsAwarded)
	}
}

func printEvaluation(r *contracts.EvalReport) {
	fmt.Printf("  Contest   : #%d\n", r.ContestID)
	fmt.Printf("  Loaded    : %d\n", r.Loaded)
	if r.Unreleased {
		fmt.Println("  Status    : chart not released yet, left unprocessed")
		return
	}
	fmt.Printf("  Evaluated : %d (%d correct, %d points)\n", r.Evaluated, r.Correct, r.PointsAwarded)
	fmt.Printf("  Users     : %d updated\n", r.UsersUpdated)
	if r.Skipped > 0 {
		fmt.Printf("  Skipped   : %d (left unprocessed)\n", r.Skipped)
	}
	if len(r.DeferredCharts) > 0 {
		fmt.Printf("  Deferred  : %s\n", strings.Join(r.DeferredCharts, ", "))
	}
}

func printSummary(s *contracts.ContestSummary) {
	fmt.Printf("  Totals    : %d predictions, %d correct, %d points\n",
		s.TotalPredictions, s.CorrectPredictions, s.TotalPoints)
	if len(s.Stats.PredictionStats) > 0 {
		fmt.Println(ruleLight)
		fmt.Printf("  %-16s %6s %8s %9s %7s\n", "TYPE", "TOTAL", "CORRECT", "SUCCESS%", "AVG")
		for _, t := range s.Stats.PredictionStats {
			fmt.Printf("  %-16s %6d %8d %9.2f %7.2f\n", t.Type, t.Total, t.Correct, t.SuccessRate, t.AvgPoints)
		}
	}
	if len(s.Stats.TopPerformers) > 0 {
		fmt.Println(ruleLight)
		for i, p := range s.Stats.TopPerformers {
			fmt.Printf("  %2d. %-24s %6d pts\n", i+1, p.Username, p.Points)
		}
	}
}

func printLeaderboard(entries []contracts.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Println("  (no entries)")
		return
	}
	fmt.Printf("  %4s  %-24s %7s %6s %8s\n", "RANK", "USER", "POINTS", "MADE", "CORRECT")
	for _, e := range entries {
		fmt.Printf("  %4d  %-24s %7d %6d %8d\n", e.Rank, e.Username, e.Points, e.PredictionsMade, e.CorrectPredictions)
	}
}

// maskPassword hides the password of a postgres URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3+colon+1] + "***" + url[at:]
}
