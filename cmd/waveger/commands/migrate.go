package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Applies the embedded schema. Every statement is idempotent, so
running it against an up-to-date database is a no-op.

Example:
  go run ./cmd/waveger migrate
  go run ./cmd/waveger migrate --print`,
	RunE: runMigrate,
}

var migratePrint bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "print the schema instead of applying it")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migratePrint {
		fmt.Println(database.Schema())
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.db.Migrate(ctx); err != nil {
		return fmt.Errorf("❌ Migration failed: %w", err)
	}
	fmt.Println("✅ Schema applied")
	return nil
}
