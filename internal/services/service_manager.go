package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/generic-repository/internal/events"
	"github.com/SAP-F-2025/generic-repository/internal/models"
	"github.com/SAP-F-2025/generic-repository/internal/persistence"
	"github.com/SAP-F-2025/generic-repository/internal/registry"
	"github.com/SAP-F-2025/generic-repository/internal/repositories"
	"github.com/SAP-F-2025/generic-repository/internal/repositories/gormrepo"
	"github.com/SAP-F-2025/generic-repository/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// ProviderToken is where the persistence provider gets registered. Empty
	// means repositories.ContextProviderToken.
	ProviderToken        string
	ItemsCommitOnRelease bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	reg       *registry.Registry
	provider  *persistence.GormProvider
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	itemService ItemService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(reg *registry.Registry, provider *persistence.GormProvider, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		reg:       reg,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize checks the database and registers everything repositories are built from
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := sm.provider.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	providerToken := repositories.ContextProviderToken
	if sm.config.ProviderToken != "" {
		providerToken = registry.NewToken(sm.config.ProviderToken)
	}

	registrations := []struct {
		token    registry.Token
		instance any
	}{
		{providerToken, persistence.Provider(sm.provider)},
		{repositories.LoggerToken, sm.logger},
		{repositories.ValidatorToken, sm.validator},
		{repositories.PublisherToken, sm.publisher},
	}
	for _, r := range registrations {
		if err := sm.reg.Register(r.token, r.instance); err != nil {
			return fmt.Errorf("failed to register %s: %w", r.token, err)
		}
	}

	if err := repositories.ConfigureRepositories(sm.reg, func(o *repositories.FactoryOptions) {
		if sm.config.ProviderToken != "" {
			o.ProviderToken = providerToken
		}
	}); err != nil {
		return err
	}

	builder, err := gormrepo.AddRepository[models.Item](sm.reg, gormrepo.ItemConstructor())
	if err != nil {
		return err
	}
	if err := builder.WithCommitOnRelease(sm.config.ItemsCommitOnRelease).Apply(); err != nil {
		return err
	}
	factory, err := gormrepo.ResolveFactory[models.Item, *gormrepo.ItemRepository](sm.reg)
	if err != nil {
		return err
	}

	sm.itemService = NewItemService(factory, sm.validator, sm.logger)
	sm.initialized = true

	sm.logger.InfoContext(ctx, "Services initialized",
		"provider_token", providerToken.String(),
		"items_commit_on_release", sm.config.ItemsCommitOnRelease)
	return nil
}

func (sm *serviceManager) Item() ItemService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.itemService
}

// HealthCheck pings the database behind the provider
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.shutdown {
		return ErrServiceNotReady
	}
	return sm.provider.HealthCheck(ctx)
}

// Shutdown closes the event publisher and the connection pool
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.shutdown = true

	var firstErr error
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.ErrorContext(ctx, "Failed to close event publisher", "error", err)
			firstErr = fmt.Errorf("failed to close event publisher: %w", err)
		}
	}
	if err := sm.provider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	sm.logger.InfoContext(ctx, "Services shut down")
	return firstErr
}
