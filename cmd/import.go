package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reunite-project/reunite/internal/config"
	"github.com/reunite-project/reunite/internal/database"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Bulk-import case embeddings from a JSON file",
	Long: `Import reference embeddings for existing cases from a JSON file.
The file holds an array of records:

  [{"case_id": "...", "vector": [0.1, ...], "quality_score": 0.9,
    "age_progressed": false, "captured_at": "2024-06-01T00:00:00Z"}]

Vectors are unit-normalized on insert. Records for unknown cases are
inserted as-is; the registry is not consulted.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("concurrency", 4, "Number of concurrent inserts")
}

type importRecord struct {
	CaseID        string    `json:"case_id"`
	Vector        []float32 `json:"vector"`
	QualityScore  float64   `json:"quality_score"`
	AgeProgressed bool      `json:"age_progressed"`
	CapturedAt    time.Time `json:"captured_at"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var records []importRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("nothing to import")
		return nil
	}

	ctx := context.Background()
	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Embeddings to import: %d\n\n", len(records))

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Importing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("embeddings"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, errorCount int
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec importRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := deps.Store.Insert(ctx, database.StoredEmbedding{
				CaseID:        rec.CaseID,
				Vector:        rec.Vector,
				QualityScore:  rec.QualityScore,
				AgeProgressed: rec.AgeProgressed,
				CapturedAt:    rec.CapturedAt,
			})

			mu.Lock()
			if err != nil {
				errorCount++
				fmt.Fprintf(os.Stderr, "\nimport embedding for case %s: %v\n", rec.CaseID, err)
			} else {
				successCount++
			}
			mu.Unlock()
			_ = bar.Add(1)
		}(rec)
	}
	wg.Wait()

	fmt.Printf("\n\nImported %d embeddings, %d failed\n", successCount, errorCount)
	if errorCount > 0 {
		return fmt.Errorf("%d of %d records failed", errorCount, len(records))
	}
	return nil
}
