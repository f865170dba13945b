package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/domain"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/service"
	"github.com/pageturnapp/pageturn-engine/internal/watcher"
)

// DropWatcherHandle wraps the drop-folder watcher with shutdown capability.
type DropWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *DropWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Close()
}

// ProvideDropWatcher provides the drop-folder watcher and the ingestion
// loop that feeds settled files into the library. Documents land under
// the anonymous owner; identity migration moves them at sign-in.
func ProvideDropWatcher(i do.Injector) (*DropWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	w, err := watcher.New(cfg.Data.DropPath, watcher.Options{
		SettleDelay:  cfg.Data.WatcherSettle,
		IgnoreHidden: true,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("Drop watcher error", "error", err)
		}
	}()

	// Ingest settled files in background.
	go func() {
		for {
			select {
			case event, ok := <-w.Events():
				if !ok {
					return
				}
				doc, err := library.IngestDocument(ctx, domain.OwnerAnonymous, event.Path)
				if err != nil {
					log.Warn("Failed to ingest dropped file",
						"path", event.Path,
						"error", err,
					)
					continue
				}
				log.Info("Ingested dropped file",
					"path", event.Path,
					"document_id", doc.ID,
					"hash", doc.Hash,
				)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Drop watcher started",
		"path", cfg.Data.DropPath,
		"settle", cfg.Data.WatcherSettle,
	)

	return &DropWatcherHandle{Watcher: w, cancel: cancel}, nil
}
