package registry

import (
	"context"
	"log"
	"time"
)

// Purger removes embeddings for a case. Implemented by the embedding store.
type Purger interface {
	Purge(ctx context.Context, caseID string) error
}

// Janitor enforces the privacy bound: every closed case has its embeddings
// purged within the configured grace period. A grace period of zero purges
// inline at closure time; the janitor sweep then only catches cases whose
// inline purge failed.
type Janitor struct {
	repo   CaseRepository
	purger Purger
	grace  time.Duration
	every  time.Duration
	stop   chan struct{}
	done   chan struct{}
}

// NewJanitor creates a janitor sweeping at the given interval.
func NewJanitor(repo CaseRepository, purger Purger, grace, every time.Duration) *Janitor {
	if every <= 0 {
		every = time.Minute
	}
	return &Janitor{
		repo:   repo,
		purger: purger,
		grace:  grace,
		every:  every,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (j *Janitor) Start() {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.every)
		defer ticker.Stop()
		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				if err := j.Sweep(context.Background()); err != nil {
					log.Printf("purge sweep failed: %v", err)
				}
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

// Sweep purges embeddings for all cases closed longer than the grace period.
func (j *Janitor) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.grace)
	ids, err := j.repo.ClosedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := j.purger.Purge(ctx, id); err != nil {
			log.Printf("purge embeddings for case %s: %v", id, err)
			continue
		}
		if err := j.repo.MarkPurged(ctx, id); err != nil {
			log.Printf("mark case %s purged: %v", id, err)
		}
	}
	return nil
}
