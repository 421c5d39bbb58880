package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Provider produces independent units of work on demand
type Provider interface {
	NewUnitOfWork(ctx context.Context) (*UnitOfWork, error)
}

var ErrProviderClosed = errors.New("provider is shut down")

// ProviderConfig holds configuration for provider initialization
type ProviderConfig struct {
	DB          *gorm.DB
	Logger      *slog.Logger
	PingTimeout time.Duration
}

// GormProvider creates units of work over one shared gorm connection pool
type GormProvider struct {
	config ProviderConfig
	logger *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewProvider creates a new provider; call Initialize before serving traffic
func NewProvider(config ProviderConfig) *GormProvider {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PingTimeout <= 0 {
		config.PingTimeout = 5 * time.Second
	}
	return &GormProvider{
		config: config,
		logger: config.Logger.With("component", "persistence_provider"),
	}
}

// Initialize validates the configuration and tests the database connection
func (p *GormProvider) Initialize() error {
	if p.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.PingTimeout)
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	return nil
}

// NewUnitOfWork creates a fresh, independently owned unit of work
func (p *GormProvider) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.shutdown {
		return nil, ErrProviderClosed
	}
	if p.config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	uow := NewUnitOfWork(p.config.DB, p.config.Logger)
	p.logger.DebugContext(ctx, "Unit of work created", "unit_of_work", uow.ID())
	return uow, nil
}

// HealthCheck pings the underlying database
func (p *GormProvider) HealthCheck(ctx context.Context) error {
	if p.config.DB == nil {
		return fmt.Errorf("provider not initialized")
	}

	sqlDB, err := p.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Shutdown stops handing out units of work and closes the connection pool
func (p *GormProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown || p.config.DB == nil {
		p.shutdown = true
		return nil
	}
	p.shutdown = true

	sqlDB, err := p.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	p.logger.InfoContext(ctx, "Persistence provider shut down")
	return nil
}
