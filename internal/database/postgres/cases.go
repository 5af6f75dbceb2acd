package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/reunite-project/reunite/internal/registry"
)

// CaseRepository is the PostgreSQL case repository.
type CaseRepository struct {
	pool *Pool
}

var _ registry.CaseRepository = (*CaseRepository)(nil)

// NewCaseRepository creates a repository over the given pool.
func NewCaseRepository(pool *Pool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

const caseColumns = `id, report_number, full_name, age_at_missing, gender,
	last_seen_location, last_seen_date, description, category, status,
	police_station, contact_number, created_at, updated_at, closed_at`

func scanCase(row interface{ Scan(...any) error }) (registry.Case, error) {
	var c registry.Case
	var lastSeen, closedAt sql.NullTime
	err := row.Scan(&c.ID, &c.ReportNumber, &c.FullName, &c.AgeAtMissing, &c.Gender,
		&c.LastSeenLocation, &lastSeen, &c.Description, &c.Category, &c.Status,
		&c.PoliceStation, &c.ContactNumber, &c.CreatedAt, &c.UpdatedAt, &closedAt)
	if err != nil {
		return registry.Case{}, err
	}
	if lastSeen.Valid {
		c.LastSeenDate = lastSeen.Time
	}
	if closedAt.Valid {
		c.ClosedAt = closedAt.Time
	}
	return c, nil
}

// Create persists a new case.
func (r *CaseRepository) Create(ctx context.Context, c registry.Case) (registry.Case, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = registry.StatusActive
	}

	var lastSeen any
	if !c.LastSeenDate.IsZero() {
		lastSeen = c.LastSeenDate
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO cases (id, report_number, full_name, normalized_name, age_at_missing,
			gender, last_seen_location, last_seen_date, description, category, status,
			police_station, contact_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.ID, c.ReportNumber, c.FullName, registry.NormalizeName(c.FullName), c.AgeAtMissing,
		c.Gender, c.LastSeenLocation, lastSeen, c.Description, string(c.Category), string(c.Status),
		c.PoliceStation, c.ContactNumber, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return registry.Case{}, registry.ErrDuplicateReportNumber
		}
		return registry.Case{}, fmt.Errorf("insert case: %w", err)
	}
	return c, nil
}

// Get returns a case by ID.
func (r *CaseRepository) Get(ctx context.Context, id string) (registry.Case, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Case{}, registry.ErrCaseNotFound
	}
	if err != nil {
		return registry.Case{}, fmt.Errorf("query case: %w", err)
	}
	return c, nil
}

// List returns cases matching the filter, newest first.
func (r *CaseRepository) List(ctx context.Context, f registry.Filter) ([]registry.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Name != "" {
		args = append(args, "%"+registry.NormalizeName(f.Name)+"%")
		query += fmt.Sprintf(" AND normalized_name LIKE $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []registry.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a case's lifecycle status.
func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, status registry.Status) (registry.Case, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		UPDATE cases
		SET status = $2,
		    updated_at = NOW(),
		    closed_at = CASE WHEN $2 = 'closed' THEN COALESCE(closed_at, NOW()) ELSE NULL END,
		    purged_at = CASE WHEN $2 = 'closed' THEN purged_at ELSE NULL END
		WHERE id = $1
		RETURNING `+caseColumns,
		id, string(status))
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Case{}, registry.ErrCaseNotFound
	}
	if err != nil {
		return registry.Case{}, fmt.Errorf("update case status: %w", err)
	}
	return c, nil
}

// ClosedBefore returns unpurged closed cases with a closure time before cutoff.
func (r *CaseRepository) ClosedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id FROM cases
		WHERE status = 'closed' AND closed_at <= $1 AND purged_at IS NULL
		ORDER BY closed_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query closed cases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkPurged records that a case's embeddings have been purged.
func (r *CaseRepository) MarkPurged(ctx context.Context, id string) error {
	_, err := r.pool.db.ExecContext(ctx,
		`UPDATE cases SET purged_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark case purged: %w", err)
	}
	return nil
}
