package backend

import (
	"context"
	"fmt"

	"familysavings/internal/api"
	applog "familysavings/internal/log"
	"familysavings/internal/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RESTBackend:
		return f.createRESTBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRESTBackend(config Config) (*BackendResult, error) {
	client, err := api.NewClient(api.Config{
		BaseURL:           config.BaseURL,
		Timeout:           config.Timeout,
		MaxIdleConns:      config.MaxIdleConns,
		IdleConnTimeout:   config.IdleConnTimeout,
		MaxConnsPerHost:   config.MaxConnsPerHost,
		MaxConcurrent:     config.MaxConcurrent,
		RequestsPerSecond: config.RequestsPerSecond,
		Logger:            f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}

	f.logger.Info("Initialized REST backend",
		applog.FieldURL, config.BaseURL,
		"rate_limited", config.RequestsPerSecond > 0)

	return &BackendResult{
		Backend: client,
		Cleanup: func() error {
			client.CloseIdleConnections()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewStore()
	if config.SeedFile != "" {
		if err := store.LoadFile(config.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Backend: store,
		Cleanup: nil,
	}, nil
}
