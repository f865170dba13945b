package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/service"
	"github.com/pageturnapp/pageturn-engine/internal/syncer"
)

// SyncerHandle wraps the syncer with its run loop for lifecycle management.
type SyncerHandle struct {
	*syncer.Syncer
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable. The run loop stops, then one final
// best-effort push drains whatever the debounced writers flushed during
// shutdown.
func (h *SyncerHandle) Shutdown() error {
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.PushOnce(ctx)
}

// ProvideSyncer provides the outbound replication worker. An empty sync
// URL leaves the engine fully offline: the syncer exists so services can
// trigger it, but every trigger is a no-op.
func ProvideSyncer(i do.Injector) (*SyncerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	identity := do.MustInvoke[*service.IdentityService](i)

	var client *syncer.Client
	if cfg.Sync.BaseURL != "" {
		client = syncer.NewClient(cfg.Sync.BaseURL, log.Logger)
	}

	s := syncer.New(storeHandle.Store, client, identity, syncer.Options{
		Interval:        cfg.Sync.Interval,
		PushesPerMinute: float64(cfg.Sync.PushesPerMinute),
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := s.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Syncer stopped", "error", err)
		}
	}()

	if client != nil {
		log.Info("Syncer started",
			"backend", cfg.Sync.BaseURL,
			"interval", cfg.Sync.Interval,
		)
	}

	return &SyncerHandle{Syncer: s, cancel: cancel}, nil
}
