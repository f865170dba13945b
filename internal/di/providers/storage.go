package providers

import (
	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/blob"
	"github.com/pageturnapp/pageturn-engine/internal/cache"
	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/debounce"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// StoreHandle wraps the record store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the on-device record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := store.Open(cfg.RecordsPath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Record store opened", "path", cfg.RecordsPath())

	return &StoreHandle{Store: st}, nil
}

// ProvideBlobStorage provides content-addressed document blob storage.
func ProvideBlobStorage(i do.Injector) (*blob.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return blob.NewStorage(cfg.Data.BasePath)
}

// ProvideHints provides the in-memory resume hint cache.
func ProvideHints(i do.Injector) (*cache.Hints, error) {
	return cache.NewHints(), nil
}

// SchedulerHandle wraps the write scheduler with shutdown capability.
type SchedulerHandle struct {
	*debounce.Scheduler
}

// Shutdown implements do.Shutdownable.
// Close flushes every pending debounced write before the store goes away.
func (h *SchedulerHandle) Shutdown() error {
	h.Scheduler.Close()
	return nil
}

// ProvideScheduler provides the debounced write scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &SchedulerHandle{Scheduler: debounce.NewScheduler(log.Logger)}, nil
}
