package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/pkg/config"
	"github.com/wonny/waveger/backend/pkg/database"
	"github.com/wonny/waveger/backend/pkg/redis"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Check PostgreSQL and Redis connectivity",
	Long: `Tests the database connection and prints pool statistics.

This command:
- loads DATABASE_URL from config
- opens a connection pool
- runs Ping and a health check
- prints connection pool statistics
- pings Redis when REDIS_ENABLED is set

Example:
  go run ./cmd/waveger test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Waveger Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Println("Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}
	fmt.Printf("✅ Healthy: %v (response %v)\n\n", status.Healthy, status.ResponseTime)

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle: %d\n", status.Stats.IdleConns)
	fmt.Printf("   Max: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Acquire Count: %d (total wait %v)\n\n", status.Stats.AcquireCount, status.Stats.AcquireDuration)

	if !cfg.Redis.Enabled {
		fmt.Println("ℹ️  Redis disabled")
		return nil
	}
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Redis unavailable: %w", err)
	}
	defer rdb.Close()
	fmt.Printf("✅ Redis reachable at %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	return nil
}
