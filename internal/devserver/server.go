// Package devserver serves the savings REST contract from an in-memory store
// so the CLI can be run and tested without the real backend.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"familysavings/internal/core"
	applog "familysavings/internal/log"
	"familysavings/internal/memory"
	"familysavings/internal/middleware/ratelimit"
	"familysavings/internal/middleware/trace"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr string
	// WriteRequestsPerMinute bounds POSTs per client address; 0 disables it.
	WriteRequestsPerMinute int
}

type Server struct {
	http.Server
	store   *memory.Store
	logger  *applog.Logger
	tracer  *trace.Middleware
	limiter *ratelimit.Limiter
}

// New wires the routes of the backend contract over store.
func New(store *memory.Store, logger *applog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentDevServer)

	s := &Server{
		store:  store,
		logger: logger,
		tracer: trace.NewMiddleware(logger),
	}
	if cfg.WriteRequestsPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.WriteRequestsPerMinute})
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		writes := api.With(s.limitWrites)

		writes.Post("/plans", s.handleCreatePlan)
		api.Get("/plans", s.handleListPlans)
		api.Get("/plans/{id}", s.handleGetPlan)

		writes.Post("/members", s.handleCreateMember)
		api.Get("/members/plan/{planId}", s.handleListMembers)

		writes.Post("/payments", s.handleCreatePayment)
		api.Get("/payments/plan/{planId}", s.handleListPayments)
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the listener and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) limitWrites(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(ratelimit.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(next)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"requests":          m.TotalRequests,
		"avg_response_time": m.AverageResponseTime,
	})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req core.CreatePlanRequest
	if !decode(w, r, &req) {
		return
	}
	plan, err := s.store.CreatePlan(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Plan created", applog.FieldPlanID, plan.ID)
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req core.CreateMemberRequest
	if !decode(w, r, &req) {
		return
	}
	member, err := s.store.CreateMember(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Member added",
		applog.FieldPlanID, member.PlanID, applog.FieldMemberID, member.ID)
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.ListMembersByPlan(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req core.CreatePaymentRequest
	if !decode(w, r, &req) {
		return
	}
	payment, err := s.store.CreatePayment(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Payment stored",
		applog.NewFields().WithPlan(payment.PlanID).WithMember(payment.MemberID).
			WithPayment(payment.ID, payment.Amount.String()).ToSlice()...)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.store.ListPaymentsByPlan(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", applog.FieldError, err.Error())
	}
	writeError(w, status, err.Error())
}

var validationErrors = []error{
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidTarget,
	core.ErrInvalidMonths,
	core.ErrInvalidContribution,
	core.ErrInvalidAmount,
	core.ErrMissingPlanID,
	core.ErrMissingMemberID,
	memory.ErrPlanMismatch,
}

func statusFor(err error) int {
	if errors.Is(err, memory.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
