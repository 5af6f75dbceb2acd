package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reunite-project/reunite/internal/config"
	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/database/memory"
	"github.com/reunite-project/reunite/internal/database/postgres"
	"github.com/reunite-project/reunite/internal/extractor"
	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/matching"
	"github.com/reunite-project/reunite/internal/notifier"
	"github.com/reunite-project/reunite/internal/registry"
	"github.com/reunite-project/reunite/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching service",
	Long: `Start the Reunite web server: the public photo submission API and
the police case-management and match-review API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().Bool("ann", false, "Use the in-memory HNSW index for similarity search")
}

// buildDeps wires the storage backend and core services from config.
func buildDeps(ctx context.Context, cfg *config.Config) (web.Deps, func(), error) {
	var (
		store       database.EmbeddingStore
		cases       registry.CaseRepository
		matches     ledger.MatchRepository
		submissions ledger.SubmissionRepository
		cleanup     = func() {}
	)

	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(&cfg.Database, cfg.Matching.VectorDim)
		if err != nil {
			return web.Deps{}, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return web.Deps{}, nil, fmt.Errorf("migrate database: %w", err)
		}
		store = postgres.NewEmbeddingStore(pool)
		cases = postgres.NewCaseRepository(pool)
		matchLedger := postgres.NewMatchLedger(pool)
		matches = matchLedger
		submissions = matchLedger
		cleanup = func() { pool.Close() }
	} else {
		fmt.Println("DATABASE_URL not set, using in-memory storage")
		store = memory.NewStore(cfg.Matching.VectorDim)
		cases = registry.NewMemoryRepository()
		memLedger := ledger.NewMemoryLedger()
		matches = memLedger
		submissions = memLedger
	}

	var alerts notifier.Notifier = notifier.LogNotifier{}
	if cfg.Notifier.WebhookURL != "" {
		alerts = notifier.NewWebhookNotifier(cfg.Notifier.WebhookURL)
	}

	var ranker matching.Ranker = matching.ExactRanker{}
	if cfg.Matching.UseANN {
		fmt.Println("Using in-memory HNSW index for similarity search")
		ranker = matching.NewHNSWRanker(cfg.Matching.ANNMaxCandidates)
	}

	categoryThresholds := make(map[registry.Category]float64, len(cfg.Matching.CategoryAlertThresholds))
	for name, threshold := range cfg.Matching.CategoryAlertThresholds {
		category, err := registry.ParseCategory(name)
		if err != nil {
			return web.Deps{}, nil, fmt.Errorf("threshold config: %w", err)
		}
		categoryThresholds[category] = threshold
	}

	pipeline := matching.NewPipeline(store, ranker, matches, submissions, cases, alerts, matching.Config{
		MatchThreshold:          cfg.Matching.MatchThreshold,
		AlertThreshold:          cfg.Matching.AlertThreshold,
		CategoryAlertThresholds: categoryThresholds,
	})

	var ex extractor.Extractor
	if cfg.Extractor.URL != "" {
		ex = extractor.NewClient(cfg.Extractor.URL)
	}

	return web.Deps{
		Store:       store,
		Cases:       cases,
		Matches:     matches,
		Submissions: submissions,
		Pipeline:    pipeline,
		Extractor:   ex,
	}, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if ann, _ := cmd.Flags().GetBool("ann"); ann {
		cfg.Matching.UseANN = true
	}

	ctx := context.Background()
	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Privacy bound: closed cases lose their embeddings within the grace period.
	janitor := registry.NewJanitor(deps.Cases, deps.Store, cfg.Matching.PurgeGracePeriod, cfg.Matching.PurgeSweepInterval)
	janitor.Start()
	defer janitor.Stop()

	server := web.NewServer(cfg, deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("received %s, shutting down\n", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
