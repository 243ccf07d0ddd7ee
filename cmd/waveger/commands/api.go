package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/internal/api"
	"github.com/wonny/waveger/backend/internal/api/handlers"
	"github.com/wonny/waveger/backend/internal/contracts"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API.

Endpoints:
  GET  /health
  GET  /api/contests
  GET  /api/contests/current
  GET  /api/contests/{id}/stats
  POST /api/predictions              (X-User-ID header)
  GET  /api/users/{id}/predictions
  GET  /api/leaderboard?contest_id=|scope=all_time&limit=
  GET  /api/charts/{chart}?date=YYYY-MM-DD

Example:
  go run ./cmd/waveger api
  go run ./cmd/waveger api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.serveMetrics(ctx)

	clock := contracts.SystemClock{}
	router := api.NewRouter(api.Handlers{
		Health:      handlers.NewHealthHandler(a.db, a.log),
		Contests:    handlers.NewContestHandler(a.contests, a.stats, a.log),
		Predictions: handlers.NewPredictionHandler(a.predictions, a.contests, a.log),
		Leaderboard: handlers.NewLeaderboardHandler(a.stats, a.log),
		Charts:      handlers.NewChartHandler(a.snapshots, a.rules, clock, a.log),
	}, a.log)

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.log.Info("Server stopped")
	return nil
}
