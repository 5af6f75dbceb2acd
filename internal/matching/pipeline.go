package matching

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/fingerprint"
	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/notifier"
	"github.com/reunite-project/reunite/internal/registry"
	"github.com/reunite-project/reunite/internal/vector"
)

// ErrInvalidQuery marks a malformed query vector (wrong dimension or
// non-finite values). Caller error; retrying the same input cannot succeed.
// Distinct from a valid "processed, no match found" outcome.
var ErrInvalidQuery = errors.New("invalid query vector")

// Stage is a state of the per-submission pipeline. Each run moves strictly
// Received -> Validating -> Searching -> Deciding -> Recorded, with an error
// exit from any non-terminal stage to Failed. No stage is retried
// automatically; a failure is terminal for that submission.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidating Stage = "validating"
	StageSearching  Stage = "searching"
	StageDeciding   Stage = "deciding"
	StageRecorded   Stage = "recorded"
	StageFailed     Stage = "failed"
)

// Query is a transient, non-persisted submission: a unit vector plus the
// opaque photo fingerprint. The originating image never reaches this core.
type Query struct {
	Vector       []float32
	QualityScore float64
	Fingerprint  string
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	SubmissionRef string
	Stage         Stage
	Matched       bool
	CaseID        string
	Confidence    float64
	Case          *registry.Case      // enrichment; nil when the case lookup degraded
	Record        *ledger.MatchRecord // nil when no match was recorded
	Ranked        []Candidate         // full ranking, top candidate first
}

// Config holds the decision thresholds. Thresholds are injected per
// pipeline, never hardcoded in the engine, so operators can tune
// precision/recall without redeploying.
type Config struct {
	MatchThreshold float64
	AlertThreshold float64
	// CategoryAlertThresholds overrides AlertThreshold per case category
	// (child cases typically alert at a lower bar).
	CategoryAlertThresholds map[registry.Category]float64
}

// Pipeline orchestrates one matching run per submission. Runs are
// independent units of work; any number may execute concurrently with no
// global serialization. The embedding store snapshot and the ledger append
// are the only touches on shared durable state.
type Pipeline struct {
	store       database.EmbeddingStore
	ranker      Ranker
	matches     ledger.MatchRepository
	submissions ledger.SubmissionRepository
	cases       registry.CaseRepository
	alerts      notifier.Notifier
	cfg         Config
}

// NewPipeline wires a pipeline. The case repository is read for enrichment
// only; the pipeline never transitions case status.
func NewPipeline(
	store database.EmbeddingStore,
	ranker Ranker,
	matches ledger.MatchRepository,
	submissions ledger.SubmissionRepository,
	cases registry.CaseRepository,
	alerts notifier.Notifier,
	cfg Config,
) *Pipeline {
	if ranker == nil {
		ranker = ExactRanker{}
	}
	if alerts == nil {
		alerts = notifier.LogNotifier{}
	}
	if cfg.AlertThreshold == 0 {
		cfg.AlertThreshold = cfg.MatchThreshold
	}
	return &Pipeline{
		store:       store,
		ranker:      ranker,
		matches:     matches,
		submissions: submissions,
		cases:       cases,
		alerts:      alerts,
		cfg:         cfg,
	}
}

// Submit runs the full pipeline for one query. The run is idempotent with
// respect to input — the same query over the same snapshot yields the same
// decision — but not with respect to side effects: every "match" decision
// appends a fresh ledger record. Duplicate-submission suppression via the
// fingerprint belongs to external collaborators.
func (p *Pipeline) Submit(ctx context.Context, q Query) (*Outcome, error) {
	out := &Outcome{
		SubmissionRef: fingerprint.NewSubmissionCode(),
		Stage:         StageReceived,
	}

	// Received -> Validating
	if err := p.advance(ctx, out, StageValidating); err != nil {
		return out, err
	}
	if err := vector.Validate(q.Vector, p.store.Dimension()); err != nil {
		out.Stage = StageFailed
		return out, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	query, err := vector.Normalize(q.Vector)
	if err != nil {
		out.Stage = StageFailed
		return out, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	// Validating -> Searching
	if err := p.advance(ctx, out, StageSearching); err != nil {
		return out, err
	}
	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		out.Stage = StageFailed
		return out, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	out.Ranked = p.ranker.Rank(query, snap, p.cfg.MatchThreshold)

	// Searching -> Deciding
	if err := p.advance(ctx, out, StageDeciding); err != nil {
		return out, err
	}
	// At most one record per submission: only the top-ranked candidate is
	// persisted, lower-ranked candidates are discarded.
	if len(out.Ranked) > 0 {
		top := out.Ranked[0]
		out.Matched = true
		out.CaseID = top.CaseID
		out.Confidence = top.Similarity
		p.enrich(ctx, out)
	}

	// Deciding -> Recorded. Once the ledger write succeeds nothing rolls it
	// back; the recorded decision is the durability boundary.
	if err := p.advance(ctx, out, StageRecorded); err != nil {
		return out, err
	}
	sub, err := p.submissions.Record(ctx, ledger.Submission{
		Code:        out.SubmissionRef,
		Fingerprint: q.Fingerprint,
		Matched:     out.Matched,
	})
	if err != nil {
		out.Stage = StageFailed
		return out, fmt.Errorf("record submission: %w", err)
	}

	if out.Matched {
		rec, err := p.record(ctx, sub.ID, out)
		if err != nil {
			out.Stage = StageFailed
			return out, err
		}
		out.Record = rec
	}

	return out, nil
}

// advance moves the run to the next stage, honoring cancellation between
// stages. Cancellation after entering Recorded has no effect on durable
// state; before it, nothing durable has been written.
func (p *Pipeline) advance(ctx context.Context, out *Outcome, next Stage) error {
	select {
	case <-ctx.Done():
		out.Stage = StageFailed
		return ctx.Err()
	default:
	}
	out.Stage = next
	return nil
}

// enrich attaches case details to the outcome. A missing case never blocks
// record creation — output degrades to the case ID alone.
func (p *Pipeline) enrich(ctx context.Context, out *Outcome) {
	if p.cases == nil {
		return
	}
	c, err := p.cases.Get(ctx, out.CaseID)
	if err != nil {
		if !errors.Is(err, registry.ErrCaseNotFound) {
			log.Printf("case enrichment for %s failed: %v", out.CaseID, err)
		}
		return
	}
	out.Case = &c
}

// record appends the match record and fires the alert exactly once when the
// confidence clears the alert threshold. Notifier failures are logged, never
// propagated — the appended record stands.
func (p *Pipeline) record(ctx context.Context, submissionID string, out *Outcome) (*ledger.MatchRecord, error) {
	top := out.Ranked[0]
	rec := ledger.MatchRecord{
		SubmissionID: submissionID,
		CaseID:       top.CaseID,
		EmbeddingID:  top.EmbeddingID,
		Confidence:   top.Similarity,
		AlertSent:    top.Similarity >= p.alertThreshold(out.Case),
	}

	stored, err := p.matches.Append(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("append match record: %w", err)
	}

	if stored.AlertSent {
		if err := p.alerts.Notify(ctx, stored); err != nil {
			log.Printf("alert for match %s failed: %v", stored.ID, err)
		}
	}
	return &stored, nil
}

// alertThreshold resolves the alerting bar for the matched case's category.
func (p *Pipeline) alertThreshold(c *registry.Case) float64 {
	if c != nil {
		if t, ok := p.cfg.CategoryAlertThresholds[c.Category]; ok {
			return t
		}
	}
	return p.cfg.AlertThreshold
}
