// Package memory keeps plans, members and payments in process. It backs the
// stub server and offline runs of the CLI.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"familysavings/internal/core"
)

// storeError is never worth retrying: the store answers the same way twice.
type storeError struct{ msg string }

func (e *storeError) Error() string   { return e.msg }
func (e *storeError) Retryable() bool { return false }

var (
	ErrNotFound     error = &storeError{"not found"}
	ErrPlanMismatch error = &storeError{"member does not belong to plan"}
)

type Store struct {
	mu       sync.Mutex
	plans    []core.Plan
	members  []core.Member
	payments []core.Payment
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Seed is the JSON layout accepted by LoadFile.
type Seed struct {
	Plans    []core.Plan    `json:"plans"`
	Members  []core.Member  `json:"members"`
	Payments []core.Payment `json:"payments"`
}

// LoadFile appends the records of a JSON seed file. Records keep their ids;
// missing ids are generated.
func (s *Store) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	s.Load(seed)
	return nil
}

// Load appends seed records as they are, without validation.
func (s *Store) Load(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range seed.Plans {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.Members, p.Payments, p.TotalCollected = nil, nil, nil
		s.plans = append(s.plans, p)
	}
	for _, m := range seed.Members {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		s.members = append(s.members, m)
	}
	for _, p := range seed.Payments {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.payments = append(s.payments, p)
	}
}

func (s *Store) CreatePlan(_ context.Context, req core.CreatePlanRequest) (core.Plan, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return core.Plan{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := core.Plan{
		ID:           uuid.NewString(),
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Months:       req.Months,
		Motive:       req.Motive,
		CreatedAt:    s.now().UTC(),
	}
	s.plans = append(s.plans, p)
	return p, nil
}

func (s *Store) ListPlans(_ context.Context) ([]core.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Plan{}, s.plans...), nil
}

func (s *Store) GetPlan(_ context.Context, id string) (core.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := core.FindPlan(s.plans, id)
	if !ok {
		return core.Plan{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Store) CreateMember(_ context.Context, req core.CreateMemberRequest) (core.Member, error) {
	if err := req.Validate(); err != nil {
		return core.Member{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindPlan(s.plans, req.PlanID); !ok {
		return core.Member{}, fmt.Errorf("plan %s: %w", req.PlanID, ErrNotFound)
	}
	m := core.Member{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(req.Name),
		PlanID:               req.PlanID,
		ContributionPerMonth: req.ContributionPerMonth,
		JoinedAt:             s.now().UTC(),
	}
	s.members = append(s.members, m)
	return m, nil
}

func (s *Store) ListMembersByPlan(_ context.Context, planID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Member{}
	for _, m := range s.members {
		if m.PlanID == planID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CreatePayment(_ context.Context, req core.CreatePaymentRequest) (core.Payment, error) {
	if err := req.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindPlan(s.plans, req.PlanID); !ok {
		return core.Payment{}, fmt.Errorf("plan %s: %w", req.PlanID, ErrNotFound)
	}
	m, ok := core.FindMember(s.members, req.MemberID)
	if !ok {
		return core.Payment{}, fmt.Errorf("member %s: %w", req.MemberID, ErrNotFound)
	}
	if m.PlanID != req.PlanID {
		return core.Payment{}, ErrPlanMismatch
	}
	p := core.Payment{
		ID:       uuid.NewString(),
		Amount:   req.Amount,
		MemberID: req.MemberID,
		PlanID:   req.PlanID,
		Date:     s.now().UTC(),
	}
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) ListPaymentsByPlan(_ context.Context, planID string) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Payment{}
	for _, p := range s.payments {
		if p.PlanID == planID {
			out = append(out, p)
		}
	}
	return out, nil
}
