package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reunite-project/reunite/internal/config"
	"github.com/reunite-project/reunite/internal/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the database schema: the pgvector extension, the case registry,
embedding, submission and match tables. Optionally builds the IVFFlat
vector index, which should be done after the first bulk import.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("vector-index", false, "Also create the IVFFlat index on embeddings")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set for migrations")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(&cfg.Database, cfg.Matching.VectorDim)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	fmt.Println("schema up to date")

	if withIndex, _ := cmd.Flags().GetBool("vector-index"); withIndex {
		if err := pool.CreateVectorIndex(ctx); err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
		fmt.Println("vector index created")
	}

	return nil
}
