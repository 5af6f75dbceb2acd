package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reunite-project/reunite/internal/ledger"
)

// MatchLedger is the PostgreSQL match ledger and submission log.
type MatchLedger struct {
	pool *Pool
}

var (
	_ ledger.MatchRepository      = (*MatchLedger)(nil)
	_ ledger.SubmissionRepository = (*MatchLedger)(nil)
)

// NewMatchLedger creates a ledger over the given pool.
func NewMatchLedger(pool *Pool) *MatchLedger {
	return &MatchLedger{pool: pool}
}

const matchColumns = `id, submission_id, case_id, embedding_id, confidence,
	verification_status, alert_sent, created_at, verified_at`

func scanMatch(row interface{ Scan(...any) error }) (ledger.MatchRecord, error) {
	var rec ledger.MatchRecord
	var embeddingID sql.NullString
	var verifiedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.SubmissionID, &rec.CaseID, &embeddingID,
		&rec.Confidence, &rec.VerificationStatus, &rec.AlertSent, &rec.CreatedAt, &verifiedAt)
	if err != nil {
		return ledger.MatchRecord{}, err
	}
	if embeddingID.Valid {
		rec.EmbeddingID = embeddingID.String
	}
	if verifiedAt.Valid {
		rec.VerifiedAt = verifiedAt.Time
	}
	return rec, nil
}

// Append persists a new match record in pending state.
func (l *MatchLedger) Append(ctx context.Context, rec ledger.MatchRecord) (ledger.MatchRecord, error) {
	rec.ID = uuid.NewString()
	rec.VerificationStatus = ledger.VerificationPending
	rec.CreatedAt = time.Now().UTC()

	var embeddingID any
	if rec.EmbeddingID != "" {
		embeddingID = rec.EmbeddingID
	}

	_, err := l.pool.db.ExecContext(ctx, `
		INSERT INTO match_records (id, submission_id, case_id, embedding_id,
			confidence, verification_status, alert_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.SubmissionID, rec.CaseID, embeddingID,
		rec.Confidence, string(rec.VerificationStatus), rec.AlertSent, rec.CreatedAt)
	if err != nil {
		return ledger.MatchRecord{}, fmt.Errorf("append match record: %w", err)
	}
	return rec, nil
}

// Get returns a record by ID.
func (l *MatchLedger) Get(ctx context.Context, id string) (ledger.MatchRecord, error) {
	row := l.pool.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM match_records WHERE id = $1`, id)
	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.MatchRecord{}, ledger.ErrMatchNotFound
	}
	if err != nil {
		return ledger.MatchRecord{}, fmt.Errorf("query match record: %w", err)
	}
	return rec, nil
}

// ListMatches returns records matching the filter, newest first.
func (l *MatchLedger) ListMatches(ctx context.Context, f ledger.MatchFilter) ([]ledger.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM match_records WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND verification_status = $%d", len(args))
	}
	if f.CaseID != "" {
		args = append(args, f.CaseID)
		query += fmt.Sprintf(" AND case_id = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := l.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list match records: %w", err)
	}
	defer rows.Close()

	var out []ledger.MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Verify transitions a pending record to a terminal decision. The WHERE
// clause makes the transition atomic: a record that already left pending is
// never updated twice.
func (l *MatchLedger) Verify(ctx context.Context, id string, decision ledger.VerificationStatus) (ledger.MatchRecord, error) {
	if !decision.Terminal() {
		return ledger.MatchRecord{}, fmt.Errorf("invalid verification decision %q", decision)
	}

	row := l.pool.db.QueryRowContext(ctx, `
		UPDATE match_records
		SET verification_status = $2, verified_at = NOW()
		WHERE id = $1 AND verification_status = 'pending'
		RETURNING `+matchColumns,
		id, string(decision))
	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the record does not exist or it is already terminal.
		if _, getErr := l.Get(ctx, id); getErr != nil {
			return ledger.MatchRecord{}, getErr
		}
		return ledger.MatchRecord{}, ledger.ErrAlreadyVerified
	}
	if err != nil {
		return ledger.MatchRecord{}, fmt.Errorf("verify match record: %w", err)
	}
	return rec, nil
}

// Record persists a submission outcome.
func (l *MatchLedger) Record(ctx context.Context, sub ledger.Submission) (ledger.Submission, error) {
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()

	_, err := l.pool.db.ExecContext(ctx, `
		INSERT INTO submissions (id, code, fingerprint, matched, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.Code, sub.Fingerprint, sub.Matched, sub.CreatedAt)
	if err != nil {
		return ledger.Submission{}, fmt.Errorf("record submission: %w", err)
	}
	return sub, nil
}

// GetByCode returns a submission by its reference code.
func (l *MatchLedger) GetByCode(ctx context.Context, code string) (ledger.Submission, error) {
	var sub ledger.Submission
	err := l.pool.db.QueryRowContext(ctx, `
		SELECT id, code, fingerprint, matched, created_at
		FROM submissions WHERE code = $1
	`, code).Scan(&sub.ID, &sub.Code, &sub.Fingerprint, &sub.Matched, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Submission{}, ledger.ErrSubmissionNotFound
	}
	if err != nil {
		return ledger.Submission{}, fmt.Errorf("query submission: %w", err)
	}
	return sub, nil
}
