// Package repository puts retries and logging around a backend and reports
// every call as a result.Result.
package repository

import (
	"context"
	"errors"
	"net/http"
	"time"

	"familysavings/internal/api"
	"familysavings/internal/backend"
	"familysavings/internal/core"
	applog "familysavings/internal/log"
	"familysavings/internal/result"
	"familysavings/internal/retry"
)

type Repository struct {
	backend backend.Backend
	policy  retry.Policy
	logger  *applog.Logger
}

func New(b backend.Backend, policy retry.Policy, logger *applog.Logger) *Repository {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Repository{
		backend: b,
		policy:  policy,
		logger:  logger.WithComponent(applog.ComponentRepository),
	}
}

func (r *Repository) CreatePlan(ctx context.Context, req core.CreatePlanRequest) result.Result[core.Plan] {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return result.Failure[core.Plan](err)
	}
	return call(ctx, r, applog.OpCreatePlan, applog.NewFields(), func(ctx context.Context) (core.Plan, error) {
		return r.backend.CreatePlan(ctx, req)
	})
}

func (r *Repository) ListPlans(ctx context.Context) result.Result[[]core.Plan] {
	return call(ctx, r, applog.OpListPlans, applog.NewFields(), func(ctx context.Context) ([]core.Plan, error) {
		plans, err := r.backend.ListPlans(ctx)
		return nonNil(plans), err
	})
}

// GetPlan reads a single plan. Backends that do not expose the single-plan
// route (404 or 405) are served by listing every plan and picking the id.
func (r *Repository) GetPlan(ctx context.Context, id string) result.Result[core.Plan] {
	if id == "" {
		return result.Failure[core.Plan](core.ErrMissingPlanID)
	}
	fields := applog.NewFields().WithPlan(id)
	res := call(ctx, r, applog.OpGetPlan, fields, func(ctx context.Context) (core.Plan, error) {
		return r.backend.GetPlan(ctx, id)
	})
	if !routeMissing(res.Err()) {
		return res
	}

	r.logger.DebugContext(ctx, "Single plan route unavailable, falling back to list", fields.ToSlice()...)
	list := r.ListPlans(ctx)
	plans, err := list.Unwrap()
	if err != nil {
		return result.Failure[core.Plan](err)
	}
	if p, ok := core.FindPlan(plans, id); ok {
		return result.Success(p)
	}
	return res
}

func (r *Repository) CreateMember(ctx context.Context, req core.CreateMemberRequest) result.Result[core.Member] {
	if err := req.Validate(); err != nil {
		return result.Failure[core.Member](err)
	}
	return call(ctx, r, applog.OpCreateMember, applog.NewFields().WithPlan(req.PlanID), func(ctx context.Context) (core.Member, error) {
		return r.backend.CreateMember(ctx, req)
	})
}

func (r *Repository) ListMembersByPlan(ctx context.Context, planID string) result.Result[[]core.Member] {
	return call(ctx, r, applog.OpListMembers, applog.NewFields().WithPlan(planID), func(ctx context.Context) ([]core.Member, error) {
		members, err := r.backend.ListMembersByPlan(ctx, planID)
		return nonNil(members), err
	})
}

func (r *Repository) CreatePayment(ctx context.Context, req core.CreatePaymentRequest) result.Result[core.Payment] {
	if err := req.Validate(); err != nil {
		return result.Failure[core.Payment](err)
	}
	fields := applog.NewFields().WithPlan(req.PlanID).WithMember(req.MemberID)
	return call(ctx, r, applog.OpCreatePayment, fields, func(ctx context.Context) (core.Payment, error) {
		return r.backend.CreatePayment(ctx, req)
	})
}

func (r *Repository) ListPaymentsByPlan(ctx context.Context, planID string) result.Result[[]core.Payment] {
	return call(ctx, r, applog.OpListPayments, applog.NewFields().WithPlan(planID), func(ctx context.Context) ([]core.Payment, error) {
		payments, err := r.backend.ListPaymentsByPlan(ctx, planID)
		return nonNil(payments), err
	})
}

func (r *Repository) ListPaymentsByMember(ctx context.Context, planID, memberID string) result.Result[[]core.Payment] {
	fields := applog.NewFields().WithPlan(planID).WithMember(memberID)
	return call(ctx, r, applog.OpListMemberPayments, fields, func(ctx context.Context) ([]core.Payment, error) {
		payments, err := r.backend.ListPaymentsByPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		return core.FilterByMember(payments, memberID), nil
	})
}

func call[T any](ctx context.Context, r *Repository, op string, fields applog.LogFields, fn func(context.Context) (T, error)) result.Result[T] {
	policy := r.policy
	attempt := 0
	policy.OnRetry = func(err error, wait time.Duration) {
		attempt++
		r.logger.WarnContext(ctx, "Retrying backend call",
			append(fields.ToSlice(), applog.FieldOperation, op, applog.FieldAttempt, attempt,
				applog.FieldWait, wait.String(), applog.FieldError, err.Error())...)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(err, wait)
		}
	}

	start := time.Now()
	v, err := retry.Do(ctx, policy, fn)
	if err != nil {
		r.logger.ErrorContext(ctx, "Backend call failed",
			fields.WithOperation(op).WithError(err).WithErrorType(errorType(err)).ToSlice()...)
		return result.Failure[T](err)
	}
	r.logger.DebugContext(ctx, "Backend call succeeded",
		append(fields.ToSlice(), applog.FieldOperation, op, applog.FieldDuration, time.Since(start).Milliseconds())...)
	return result.Success(v)
}

func routeMissing(err error) bool {
	var se *api.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusMethodNotAllowed
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	case errors.Is(err, api.ErrTransport):
		return applog.ErrorTypeNetwork
	case api.IsNotFound(err):
		return applog.ErrorTypeNotFound
	case errors.Is(err, api.ErrServer):
		return applog.ErrorTypeServer
	case errors.Is(err, api.ErrMalformedResponse):
		return applog.ErrorTypeMalformed
	default:
		return applog.ErrorTypeInternal
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
