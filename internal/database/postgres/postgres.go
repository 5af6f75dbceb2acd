// Package postgres implements the storage contracts on PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/reunite-project/reunite/internal/config"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db  *sql.DB
	dim int
}

// NewPool opens a connection pool and verifies connectivity.
func NewPool(cfg *config.DatabaseConfig, vectorDim int) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db, dim: vectorDim}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Migrate creates the schema. Idempotent.
func (p *Pool) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS cases (
			id                 UUID PRIMARY KEY,
			report_number      VARCHAR(64) UNIQUE NOT NULL,
			full_name          TEXT NOT NULL,
			normalized_name    TEXT NOT NULL,
			age_at_missing     INTEGER NOT NULL DEFAULT 0,
			gender             VARCHAR(32) NOT NULL DEFAULT '',
			last_seen_location TEXT NOT NULL DEFAULT '',
			last_seen_date     TIMESTAMP WITH TIME ZONE,
			description        TEXT NOT NULL DEFAULT '',
			category           VARCHAR(16) NOT NULL,
			status             VARCHAR(16) NOT NULL DEFAULT 'active',
			police_station     TEXT NOT NULL DEFAULT '',
			contact_number     VARCHAR(32) NOT NULL DEFAULT '',
			created_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			closed_at          TIMESTAMP WITH TIME ZONE,
			purged_at          TIMESTAMP WITH TIME ZONE
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embeddings (
			seq            BIGSERIAL,
			id             UUID PRIMARY KEY,
			case_id        UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
			embedding      vector(%d) NOT NULL,
			quality_score  DOUBLE PRECISION NOT NULL,
			age_progressed BOOLEAN NOT NULL DEFAULT FALSE,
			captured_at    TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, p.dim),
		`CREATE INDEX IF NOT EXISTS embeddings_case_id_idx ON embeddings(case_id)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id          UUID PRIMARY KEY,
			code        VARCHAR(16) UNIQUE NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			matched     BOOLEAN NOT NULL,
			created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS match_records (
			id                  UUID PRIMARY KEY,
			submission_id       UUID NOT NULL REFERENCES submissions(id),
			case_id             UUID NOT NULL,
			embedding_id        UUID,
			confidence          DOUBLE PRECISION NOT NULL,
			verification_status VARCHAR(16) NOT NULL DEFAULT 'pending',
			alert_sent          BOOLEAN NOT NULL DEFAULT FALSE,
			created_at          TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			verified_at         TIMESTAMP WITH TIME ZONE
		)`,
		`CREATE INDEX IF NOT EXISTS match_records_case_id_idx ON match_records(case_id)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateVectorIndex creates the IVFFlat index for similarity search. Called
// separately once the table has data, for sensible list centroids.
func (p *Pool) CreateVectorIndex(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS embeddings_vector_idx
		ON embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}
