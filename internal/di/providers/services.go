package providers

import (
	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/blob"
	"github.com/pageturnapp/pageturn-engine/internal/cache"
	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/service"
)

// ProvideIdentityService provides the anonymous-to-authenticated migration service.
func ProvideIdentityService(i do.Injector) (*service.IdentityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIdentityService(storeHandle.Store, log.Logger), nil
}

// ProvideLibraryService provides book and document management.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobs := do.MustInvoke[*blob.Storage](i)
	hints := do.MustInvoke[*cache.Hints](i)
	log := do.MustInvoke[*logger.Logger](i)
	sync := do.MustInvoke[*SyncerHandle](i)

	return service.NewLibraryService(storeHandle.Store, blobs, hints, sync.Trigger, log.Logger), nil
}

// ProvideStatsService provides reading stats and streak tracking.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	scheduler := do.MustInvoke[*SchedulerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	sync := do.MustInvoke[*SyncerHandle](i)

	return service.NewStatsService(storeHandle.Store, scheduler.Scheduler,
		cfg.Debounce.StatsWindow, sync.Trigger, log.Logger), nil
}

// ProgressServiceHandle wraps the progress service with shutdown capability.
type ProgressServiceHandle struct {
	*service.ProgressService
}

// Shutdown implements do.Shutdownable. Flushes every debounced position
// write so nothing reported is lost across a restart.
func (h *ProgressServiceHandle) Shutdown() error {
	h.ProgressService.Close()
	return nil
}

// ProvideProgressService provides debounced position tracking.
func ProvideProgressService(i do.Injector) (*ProgressServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	scheduler := do.MustInvoke[*SchedulerHandle](i)
	hints := do.MustInvoke[*cache.Hints](i)
	publisher := do.MustInvoke[*ShellPublisherHandle](i)
	stats := do.MustInvoke[*service.StatsService](i)
	log := do.MustInvoke[*logger.Logger](i)
	sync := do.MustInvoke[*SyncerHandle](i)

	svc := service.NewProgressService(
		storeHandle.Store,
		scheduler.Scheduler,
		hints,
		publisher,
		stats,
		cfg.Debounce.PositionWindow,
		sync.Trigger,
		log.Logger,
	)

	return &ProgressServiceHandle{ProgressService: svc}, nil
}

// ProvideGoalService provides reading goal plans and daily targets.
func ProvideGoalService(i do.Injector) (*service.GoalService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	sync := do.MustInvoke[*SyncerHandle](i)

	return service.NewGoalService(storeHandle.Store, sync.Trigger, log.Logger), nil
}
