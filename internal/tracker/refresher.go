package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "familysavings/internal/log"
)

// RefresherConfig holds configuration for the background refresher
type RefresherConfig struct {
	// Interval between two RefreshAll runs (default: 30s)
	Interval time.Duration

	// OnRefresh, if set, is called after every run with its error (nil on success)
	OnRefresh func(err error)
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{Interval: 30 * time.Second}
}

// Refresher periodically reloads every cached plan.
type Refresher struct {
	service *Service
	config  RefresherConfig
	logger  *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefresher(service *Service, config RefresherConfig) *Refresher {
	if config.Interval <= 0 {
		config.Interval = DefaultRefresherConfig().Interval
	}
	return &Refresher{
		service: service,
		config:  config,
		logger:  service.logger.WithComponent(applog.ComponentRefresher),
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Refresher started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Refresher stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Refresher stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the refresher is currently running
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	err := r.service.RefreshAll(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Refresh finished with errors",
			applog.NewFields().WithOperation(applog.OpRefresh).WithError(err).ToSlice()...)
	} else {
		r.logger.DebugContext(ctx, "Refresh finished",
			applog.FieldOperation, applog.OpRefresh,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
	if r.config.OnRefresh != nil {
		r.config.OnRefresh(err)
	}
}
