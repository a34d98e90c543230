// Package tracker loads plans with their members and payments, computes
// summaries and registers payments.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"familysavings/internal/aggregate"
	"familysavings/internal/amqp"
	"familysavings/internal/cache"
	"familysavings/internal/core"
	applog "familysavings/internal/log"
	"familysavings/internal/result"
)

// Repository is the subset of repository.Repository the service needs.
type Repository interface {
	CreatePlan(ctx context.Context, req core.CreatePlanRequest) result.Result[core.Plan]
	ListPlans(ctx context.Context) result.Result[[]core.Plan]
	GetPlan(ctx context.Context, id string) result.Result[core.Plan]
	CreateMember(ctx context.Context, req core.CreateMemberRequest) result.Result[core.Member]
	ListMembersByPlan(ctx context.Context, planID string) result.Result[[]core.Member]
	CreatePayment(ctx context.Context, req core.CreatePaymentRequest) result.Result[core.Payment]
	ListPaymentsByPlan(ctx context.Context, planID string) result.Result[[]core.Payment]
}

// SnapshotStore keeps the last good snapshot of each plan across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap cache.PlanSnapshot) error
	Load(ctx context.Context, planID string) (cache.PlanSnapshot, error)
	LoadAll(ctx context.Context) ([]cache.PlanSnapshot, error)
}

// EventPublisher receives an event after every successful write.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.Event) error
}

type Service struct {
	repo        Repository
	snapshots   *cache.Snapshots
	store       SnapshotStore
	events      EventPublisher
	maxParallel int
	logger      *applog.Logger
	structured  *applog.StructuredLogger
	now         func() time.Time
}

type Option func(*Service)

// WithSnapshotStore enables the stale-data fallback.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Service) { s.store = store }
}

// WithPublisher enables event publishing.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMaxParallel bounds how many plans Overview loads at once.
func WithMaxParallel(n int) Option {
	return func(s *Service) { s.maxParallel = n }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, snapshots *cache.Snapshots, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		snapshots:   snapshots,
		maxParallel: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.Discard()
	}
	s.logger = s.logger.WithComponent(applog.ComponentTracker)
	s.structured = applog.NewStructuredLogger(s.logger)
	return s
}

// Plans lists every plan.
func (s *Service) Plans(ctx context.Context) result.Result[[]core.Plan] {
	return s.repo.ListPlans(ctx)
}

// LoadPlan returns the plan with its members and payments. Cached snapshots
// are served as is. On a miss the three lists are fetched concurrently; a
// failed member or payment fetch yields an empty list and a Partial
// snapshot, a failed plan fetch falls back to the stored snapshot.
func (s *Service) LoadPlan(ctx context.Context, planID string) result.Result[cache.PlanSnapshot] {
	if planID == "" {
		return result.Failure[cache.PlanSnapshot](core.ErrMissingPlanID)
	}
	if snap, ok := s.snapshots.Get(planID); ok {
		return result.Success(snap)
	}

	snap, err := s.fetch(ctx, planID)
	if err != nil {
		if ctx.Err() == nil {
			if stale, ok := s.restore(ctx, planID, err); ok {
				return result.Success(stale)
			}
		}
		return result.Failure[cache.PlanSnapshot](err)
	}
	s.remember(ctx, snap)
	return result.Success(snap)
}

func (s *Service) fetch(ctx context.Context, planID string) (cache.PlanSnapshot, error) {
	var (
		plan     core.Plan
		members  []core.Member
		payments []core.Payment
		partial  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repo.GetPlan(gctx, planID).Unwrap()
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	g.Go(func() error {
		members, payments, partial = s.loadCollections(gctx, planID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return cache.PlanSnapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return cache.PlanSnapshot{}, err
	}

	return cache.PlanSnapshot{
		Plan:      plan,
		Members:   members,
		Payments:  payments,
		FetchedAt: s.now().UTC(),
		Partial:   partial,
	}, nil
}

// loadCollections fetches members and payments concurrently. Failures are
// replaced by empty lists and reported through partial.
func (s *Service) loadCollections(ctx context.Context, planID string) (members []core.Member, payments []core.Payment, partial bool) {
	var membersErr, paymentsErr error

	var g errgroup.Group
	g.Go(func() error {
		members, membersErr = s.repo.ListMembersByPlan(ctx, planID).Unwrap()
		return nil
	})
	g.Go(func() error {
		payments, paymentsErr = s.repo.ListPaymentsByPlan(ctx, planID).Unwrap()
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return []core.Member{}, []core.Payment{}, true
	}
	if membersErr != nil {
		s.logger.WarnContext(ctx, "Members unavailable, showing plan without members",
			applog.NewFields().WithPlan(planID).WithError(membersErr).ToSlice()...)
		members, partial = []core.Member{}, true
	}
	if paymentsErr != nil {
		s.logger.WarnContext(ctx, "Payments unavailable, showing plan without payments",
			applog.NewFields().WithPlan(planID).WithError(paymentsErr).ToSlice()...)
		payments, partial = []core.Payment{}, true
	}
	return members, payments, partial
}

// remember caches and persists complete snapshots. Partial ones are returned
// to the caller but never kept, so the next read tries again.
func (s *Service) remember(ctx context.Context, snap cache.PlanSnapshot) {
	if snap.Partial || snap.Stale {
		return
	}
	s.snapshots.Put(snap)
	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist snapshot",
				applog.NewFields().WithPlan(snap.Plan.ID).WithError(err).ToSlice()...)
		}
	}
}

func (s *Service) restore(ctx context.Context, planID string, cause error) (cache.PlanSnapshot, bool) {
	if s.store == nil {
		return cache.PlanSnapshot{}, false
	}
	snap, err := s.store.Load(ctx, planID)
	if err != nil {
		return cache.PlanSnapshot{}, false
	}
	s.logger.WarnContext(ctx, "Backend unavailable, serving stored snapshot",
		applog.NewFields().WithPlan(planID).WithError(cause).ToSlice()...)
	snap.Stale = true
	return snap, true
}

// PlanSummary aggregates one plan.
func (s *Service) PlanSummary(ctx context.Context, planID string) result.Result[aggregate.PlanSummary] {
	return result.Map(s.LoadPlan(ctx, planID), func(snap cache.PlanSnapshot) aggregate.PlanSummary {
		return aggregate.Summarize(snap.Plan, snap.Members, snap.Payments)
	})
}

// PlanOverview is one row of Overview. Stale and Partial carry the state of
// the data the summary was computed from.
type PlanOverview struct {
	aggregate.PlanSummary
	Stale     bool
	Partial   bool
	FetchedAt time.Time
}

func overviewOf(snap cache.PlanSnapshot) PlanOverview {
	return PlanOverview{
		PlanSummary: aggregate.Summarize(snap.Plan, snap.Members, snap.Payments),
		Stale:       snap.Stale,
		Partial:     snap.Partial,
		FetchedAt:   snap.FetchedAt,
	}
}

// Overview summarizes every plan. Plans are loaded concurrently, at most
// maxParallel at a time; a plan whose members or payments cannot be loaded
// is summarized with empty lists and marked Partial. When the plan list
// itself is unavailable the stored snapshots are used and marked Stale.
func (s *Service) Overview(ctx context.Context) result.Result[[]PlanOverview] {
	plans, err := s.repo.ListPlans(ctx).Unwrap()
	if err != nil {
		if ctx.Err() == nil {
			if rows, ok := s.restoreOverview(ctx, err); ok {
				return result.Success(rows)
			}
		}
		return result.Failure[[]PlanOverview](err)
	}

	rows := make([]PlanOverview, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	for i, plan := range plans {
		g.Go(func() error {
			if snap, ok := s.snapshots.Get(plan.ID); ok {
				snap.Plan = plan
				rows[i] = overviewOf(snap)
				return nil
			}
			members, payments, partial := s.loadCollections(gctx, plan.ID)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			snap := cache.PlanSnapshot{
				Plan:      plan,
				Members:   members,
				Payments:  payments,
				FetchedAt: s.now().UTC(),
				Partial:   partial,
			}
			s.remember(gctx, snap)
			rows[i] = overviewOf(snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result.Failure[[]PlanOverview](err)
	}
	return result.Success(rows)
}

func (s *Service) restoreOverview(ctx context.Context, cause error) ([]PlanOverview, bool) {
	if s.store == nil {
		return nil, false
	}
	snaps, err := s.store.LoadAll(ctx)
	if err != nil || len(snaps) == 0 {
		return nil, false
	}
	s.logger.WarnContext(ctx, "Backend unavailable, serving stored overview",
		applog.NewFields().WithError(cause).ToSlice()...)
	out := make([]PlanOverview, len(snaps))
	for i, snap := range snaps {
		snap.Stale = true
		out[i] = overviewOf(snap)
	}
	return out, true
}

// MemberStatement returns one member's payments and progress.
func (s *Service) MemberStatement(ctx context.Context, planID, memberID string) result.Result[aggregate.MemberStatement] {
	if memberID == "" {
		return result.Failure[aggregate.MemberStatement](core.ErrMissingMemberID)
	}
	snap, err := s.LoadPlan(ctx, planID).Unwrap()
	if err != nil {
		return result.Failure[aggregate.MemberStatement](err)
	}
	member, ok := core.FindMember(snap.Members, memberID)
	if !ok {
		return result.Failure[aggregate.MemberStatement](fmt.Errorf("%w: %s", ErrMemberNotFound, memberID))
	}
	return result.Success(aggregate.Statement(snap.Plan, member, snap.Payments))
}

func (s *Service) CreatePlan(ctx context.Context, req core.CreatePlanRequest) result.Result[core.Plan] {
	res := s.repo.CreatePlan(ctx, req)
	plan, ok := res.Value()
	if !ok {
		return res
	}
	e := amqp.NewEvent(amqp.EventPlanCreated, plan.ID)
	e.TargetAmount = plan.TargetAmount
	s.publish(ctx, e)
	return res
}

func (s *Service) AddMember(ctx context.Context, req core.CreateMemberRequest) result.Result[core.Member] {
	res := s.repo.CreateMember(ctx, req)
	member, ok := res.Value()
	if !ok {
		return res
	}
	s.snapshots.Invalidate(member.PlanID)

	e := amqp.NewEvent(amqp.EventMemberAdded, member.PlanID)
	e.MemberID = member.ID
	e.Amount = member.ContributionPerMonth
	s.publish(ctx, e)
	return res
}

// RegisterPayment records a payment. Unless allowOverpay is set, a payment
// larger than what is left to reach the goal is refused with
// ErrExceedsRemaining before anything is sent. When the collected total
// cannot be trusted (partial or stored data) the payment is refused with
// ErrTotalUnknown, or, when forced, published without totals.
func (s *Service) RegisterPayment(ctx context.Context, req core.CreatePaymentRequest, allowOverpay bool) result.Result[core.Payment] {
	if err := req.Validate(); err != nil {
		return result.Failure[core.Payment](err)
	}

	snap, loadErr := s.LoadPlan(ctx, req.PlanID).Unwrap()
	if loadErr == nil && (snap.Partial || snap.Stale) {
		loadErr = ErrTotalUnknown
	}
	if loadErr != nil && !allowOverpay {
		return result.Failure[core.Payment](fmt.Errorf("check remaining goal: %w", loadErr))
	}

	var before decimal.Decimal
	if loadErr == nil {
		if _, ok := core.FindMember(snap.Members, req.MemberID); !ok {
			return result.Failure[core.Payment](fmt.Errorf("%w: %s", ErrMemberNotFound, req.MemberID))
		}
		before = aggregate.TotalCollected(snap.Payments)
		if !allowOverpay && aggregate.ExceedsRemaining(snap.Plan.TargetAmount, before, req.Amount) {
			return result.Failure[core.Payment](&ExceedsRemainingError{
				Amount:    req.Amount,
				Remaining: aggregate.RemainingToGoal(snap.Plan.TargetAmount, before),
			})
		}
	}

	res := s.repo.CreatePayment(ctx, req)
	payment, ok := res.Value()
	if !ok {
		return res
	}
	s.snapshots.Invalidate(req.PlanID)
	s.structured.LogPaymentRecorded(ctx, req.PlanID, req.MemberID, payment.ID, payment.Amount.String())

	e := amqp.NewEvent(amqp.EventPaymentRecorded, req.PlanID)
	e.MemberID = req.MemberID
	e.PaymentID = payment.ID
	e.Amount = payment.Amount
	if loadErr == nil {
		after := before.Add(payment.Amount)
		e.TotalCollected = after
		e.TargetAmount = snap.Plan.TargetAmount
		s.publish(ctx, e)

		target := snap.Plan.TargetAmount
		if target.IsPositive() && !aggregate.GoalReached(target, before) && aggregate.GoalReached(target, after) {
			goal := amqp.NewEvent(amqp.EventGoalReached, req.PlanID)
			goal.TotalCollected = after
			goal.TargetAmount = target
			s.publish(ctx, goal)
		}
	} else {
		s.publish(ctx, e)
	}
	return res
}

// Refresh drops the cached snapshot of planID and loads it again.
func (s *Service) Refresh(ctx context.Context, planID string) result.Result[cache.PlanSnapshot] {
	s.snapshots.Invalidate(planID)
	return s.LoadPlan(ctx, planID)
}

// RefreshAll reloads every cached plan. Plans that fail, or come back
// partial, keep their previous snapshot.
func (s *Service) RefreshAll(ctx context.Context) error {
	return s.snapshots.RefreshAll(ctx, func(ctx context.Context, planID string) (cache.PlanSnapshot, error) {
		snap, err := s.fetch(ctx, planID)
		if err != nil {
			return cache.PlanSnapshot{}, err
		}
		if snap.Partial {
			return cache.PlanSnapshot{}, errors.New("members or payments unavailable")
		}
		if s.store != nil {
			if err := s.store.Save(ctx, snap); err != nil {
				s.logger.WarnContext(ctx, "Failed to persist snapshot",
					applog.NewFields().WithPlan(planID).WithError(err).ToSlice()...)
			}
		}
		return snap, nil
	})
}

func (s *Service) publish(ctx context.Context, e *amqp.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.structured.LogError(ctx, "Failed to publish event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithPlan(e.PlanID).WithMember(e.MemberID))
	}
}
