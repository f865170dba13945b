// Package di provides dependency injection configuration for the PageTurn engine.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/di/providers"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStorage)
	do.Provide(injector, providers.ProvideHints)
	do.Provide(injector, providers.ProvideScheduler)

	// Shell integration
	do.Provide(injector, providers.ProvideShellPublisher)

	// Replication
	do.Provide(injector, providers.ProvideIdentityService)
	do.Provide(injector, providers.ProvideSyncer)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideProgressService)
	do.Provide(injector, providers.ProvideGoalService)

	// Workers
	do.Provide(injector, providers.ProvideDropWatcher)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)
	_ = do.MustInvoke[*providers.ShellPublisherHandle](injector)

	// Replication
	_ = do.MustInvoke[*service.IdentityService](injector)
	_ = do.MustInvoke[*providers.SyncerHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*providers.ProgressServiceHandle](injector)
	_ = do.MustInvoke[*service.GoalService](injector)

	// Workers
	_ = do.MustInvoke[*providers.DropWatcherHandle](injector)

	return nil
}
