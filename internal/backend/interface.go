package backend

import (
	"context"
	"time"

	"familysavings/internal/core"
)

// PlanStore creates and reads savings plans.
type PlanStore interface {
	CreatePlan(ctx context.Context, req core.CreatePlanRequest) (core.Plan, error)
	ListPlans(ctx context.Context) ([]core.Plan, error)
	GetPlan(ctx context.Context, id string) (core.Plan, error)
}

// MemberStore creates and lists the members of a plan.
type MemberStore interface {
	CreateMember(ctx context.Context, req core.CreateMemberRequest) (core.Member, error)
	ListMembersByPlan(ctx context.Context, planID string) ([]core.Member, error)
}

// PaymentStore records payments and lists them per plan.
type PaymentStore interface {
	CreatePayment(ctx context.Context, req core.CreatePaymentRequest) (core.Payment, error)
	ListPaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error)
}

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	PlanStore
	MemberStore
	PaymentStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// REST specific
	BaseURL           string
	Timeout           time.Duration
	MaxIdleConns      int
	IdleConnTimeout   time.Duration
	MaxConnsPerHost   int
	MaxConcurrent     int
	RequestsPerSecond float64

	// Memory specific, optional
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	RESTBackend   BackendType = "rest"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RESTBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
