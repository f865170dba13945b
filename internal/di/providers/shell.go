package providers

import (
	"github.com/samber/do/v2"

	"github.com/pageturnapp/pageturn-engine/internal/config"
	"github.com/pageturnapp/pageturn-engine/internal/logger"
	"github.com/pageturnapp/pageturn-engine/internal/shell"
)

// ShellPublisherHandle wraps the shell publisher with shutdown capability.
type ShellPublisherHandle struct {
	shell.Publisher
}

// Shutdown implements do.Shutdownable.
func (h *ShellPublisherHandle) Shutdown() error {
	return h.Publisher.Close()
}

// ProvideShellPublisher provides the native-shell progress publisher.
// When the session bus is unavailable (headless session, missing bus
// address) the engine degrades to a no-op publisher rather than failing
// to start.
func ProvideShellPublisher(i do.Injector) (*ShellPublisherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Shell.Enabled {
		log.Info("Shell publishing disabled")
		return &ShellPublisherHandle{Publisher: shell.NewNoopPublisher()}, nil
	}

	pub, err := shell.NewDBusPublisher(log.Logger)
	if err != nil {
		log.Warn("Session bus unavailable, shell publishing disabled", "error", err)
		return &ShellPublisherHandle{Publisher: shell.NewNoopPublisher()}, nil
	}

	log.Info("Shell publisher connected to session bus")
	return &ShellPublisherHandle{Publisher: pub}, nil
}
