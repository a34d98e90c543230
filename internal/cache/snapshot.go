package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"familysavings/internal/core"
)

// PlanSnapshot is everything the client knows about one plan at FetchedAt.
type PlanSnapshot struct {
	Plan      core.Plan      `json:"plan"`
	Members   []core.Member  `json:"members"`
	Payments  []core.Payment `json:"payments"`
	FetchedAt time.Time      `json:"fetchedAt"`

	// Partial is set when members or payments could not be fetched and were
	// replaced by empty lists.
	Partial bool `json:"partial,omitempty"`
	// Stale is set when the snapshot was restored from disk instead of the backend.
	Stale bool `json:"stale,omitempty"`
}

// Loader fetches a fresh snapshot for one plan.
type Loader func(ctx context.Context, planID string) (PlanSnapshot, error)

// Snapshots caches plan snapshots by plan id.
type Snapshots struct {
	cache       Cache[PlanSnapshot]
	maxParallel int
}

// NewSnapshots wraps c. maxParallel bounds RefreshAll; values below 1 mean unbounded.
func NewSnapshots(c Cache[PlanSnapshot], maxParallel int) *Snapshots {
	return &Snapshots{cache: c, maxParallel: maxParallel}
}

func (s *Snapshots) Get(planID string) (PlanSnapshot, bool) {
	return s.cache.Get(planID)
}

func (s *Snapshots) Put(snap PlanSnapshot) {
	s.cache.Set(snap.Plan.ID, snap)
}

// Invalidate drops one plan so the next read goes to the backend.
func (s *Snapshots) Invalidate(planID string) {
	s.cache.Delete(planID)
}

func (s *Snapshots) InvalidateAll() {
	s.cache.Clear()
}

func (s *Snapshots) Keys() []string {
	return s.cache.Keys()
}

// RefreshAll reloads every cached plan concurrently. A plan whose reload
// fails keeps its previous snapshot; all failures are joined into the
// returned error. Nothing is stored once ctx is done.
func (s *Snapshots) RefreshAll(ctx context.Context, load Loader) error {
	keys := s.Keys()
	if len(keys) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	for _, key := range keys {
		g.Go(func() error {
			snap, err := load(gctx, key)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("refresh plan %s: %w", key, err))
				mu.Unlock()
				return nil
			}
			if gctx.Err() != nil {
				return nil
			}
			if snap.Plan.ID == "" {
				snap.Plan.ID = key
			}
			s.Put(snap)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
