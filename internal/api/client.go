// Package api is the HTTP client for the savings REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"familysavings/internal/core"
	applog "familysavings/internal/log"
)

const (
	// RequestIDHeader is set on every outgoing request.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes  = 4 << 20
	maxErrorChars = 512
)

// Config holds the REST client settings.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	MaxConnsPerHost int
	MaxConcurrent   int
	// RequestsPerSecond enables a client-side rate limit when > 0.
	RequestsPerSecond float64

	// HTTPClient replaces the pooled client built from the settings above.
	HTTPClient *http.Client
	Logger     *applog.Logger
}

// DefaultConfig returns the connection settings used by the mobile client.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:3000/",
		Timeout:         30 * time.Second,
		MaxIdleConns:    5,
		IdleConnTimeout: 5 * time.Minute,
		MaxConnsPerHost: 10,
		MaxConcurrent:   20,
	}
}

// Client talks to the savings backend. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *applog.Logger
}

// NewClient validates cfg and builds a pooled client.
func NewClient(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}

	hc := cfg.HTTPClient
	if hc == nil {
		dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				MaxIdleConns:          cfg.MaxIdleConns,
				MaxIdleConnsPerHost:   cfg.MaxIdleConns,
				MaxConnsPerHost:       cfg.MaxConnsPerHost,
				IdleConnTimeout:       cfg.IdleConnTimeout,
				ResponseHeaderTimeout: cfg.Timeout,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	return &Client{
		baseURL: base,
		http:    hc,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter: limiter,
		tracer:  otel.Tracer("familysavings/api"),
		logger:  logger.WithComponent(applog.ComponentAPI),
	}, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) CreatePlan(ctx context.Context, req core.CreatePlanRequest) (core.Plan, error) {
	var p core.Plan
	err := c.do(ctx, applog.OpCreatePlan, http.MethodPost, req, &p, "api", "plans")
	return p, err
}

func (c *Client) ListPlans(ctx context.Context) ([]core.Plan, error) {
	var plans []core.Plan
	err := c.do(ctx, applog.OpListPlans, http.MethodGet, nil, &plans, "api", "plans")
	return plans, err
}

func (c *Client) GetPlan(ctx context.Context, id string) (core.Plan, error) {
	var p core.Plan
	err := c.do(ctx, applog.OpGetPlan, http.MethodGet, nil, &p, "api", "plans", id)
	return p, err
}

func (c *Client) CreateMember(ctx context.Context, req core.CreateMemberRequest) (core.Member, error) {
	var m core.Member
	err := c.do(ctx, applog.OpCreateMember, http.MethodPost, req, &m, "api", "members")
	return m, err
}

func (c *Client) ListMembersByPlan(ctx context.Context, planID string) ([]core.Member, error) {
	var members []core.Member
	err := c.do(ctx, applog.OpListMembers, http.MethodGet, nil, &members, "api", "members", "plan", planID)
	return members, err
}

func (c *Client) CreatePayment(ctx context.Context, req core.CreatePaymentRequest) (core.Payment, error) {
	var p core.Payment
	err := c.do(ctx, applog.OpCreatePayment, http.MethodPost, req, &p, "api", "payments")
	return p, err
}

func (c *Client) ListPaymentsByPlan(ctx context.Context, planID string) ([]core.Payment, error) {
	var payments []core.Payment
	err := c.do(ctx, applog.OpListPayments, http.MethodGet, nil, &payments, "api", "payments", "plan", planID)
	return payments, err
}

// ListPaymentsByMember has no route of its own; it filters the plan's payments.
func (c *Client) ListPaymentsByMember(ctx context.Context, planID, memberID string) ([]core.Payment, error) {
	payments, err := c.ListPaymentsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return core.FilterByMember(payments, memberID), nil
}

func (c *Client) do(ctx context.Context, op, method string, in, out any, path ...string) error {
	endpoint := c.baseURL.JoinPath(path...)
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "api."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", endpoint.String()),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	err := c.roundTrip(ctx, op, method, endpoint.String(), requestID, in, out, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, endpoint, requestID string, in, out any, span trace.Span) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer c.sem.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed",
			applog.NewFields().WithOperation(op).WithHTTPRequest(method, endpoint).
				WithRequestID(requestID).WithError(err).WithErrorType(applog.ErrorTypeNetwork).ToSlice()...)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	elapsed := time.Since(start).Milliseconds()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.DebugContext(ctx, "Request completed",
		applog.NewFields().WithOperation(op).WithHTTPRequest(method, endpoint).WithRequestID(requestID).
			WithHTTPResponse(resp.StatusCode, elapsed, resp.StatusCode < 300).ToSlice()...)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Body: errorText(raw)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &MalformedResponseError{Op: op, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &MalformedResponseError{Op: op, Err: err}
	}
	return nil
}

// errorText extracts a human readable message from an error body. JSON bodies
// of the form {"message": "..."} or {"error": "..."} yield the inner string.
func errorText(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	s := string(raw)
	if utf8.RuneCountInString(s) > maxErrorChars {
		s = string([]rune(s)[:maxErrorChars])
	}
	return s
}
