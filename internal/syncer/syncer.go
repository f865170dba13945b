// Package syncer replicates local records to the cloud backend.
//
// Replication is best-effort and outbound-only: records modified since the
// last checkpoint are pushed per kind, and the checkpoint advances only
// when every kind lands. Failures are logged and absorbed; the next
// trigger retries the same delta. Nothing in the engine ever blocks on the
// network.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// Migrator rewrites anonymous records to an authenticated identity. The
// identity service implements it; the syncer calls it before the first
// post-sign-in push so the cloud only ever sees the authenticated owner.
type Migrator interface {
	Migrate(ctx context.Context, fromOwnerID, toOwnerID string) (int, error)
}

// Options configures the sync loop.
type Options struct {
	// Interval between periodic pushes. Zero disables the ticker; pushes
	// then happen only on explicit triggers.
	Interval time.Duration

	// PushesPerMinute caps outbound push passes. Coalesced triggers plus
	// this cap keep a chatty UI from turning into a chatty network.
	PushesPerMinute float64
}

func (o *Options) setDefaults() {
	if o.Interval == 0 {
		o.Interval = 5 * time.Minute
	}
	if o.PushesPerMinute == 0 {
		o.PushesPerMinute = 12
	}
}

// Syncer owns the push loop.
type Syncer struct {
	store    *store.Store
	client   *Client
	migrator Migrator
	logger   *slog.Logger
	opts     Options
	limiter  *rate.Limiter

	// trigger carries coalesced push requests: a second trigger while one
	// is pending folds into it.
	trigger chan struct{}
}

// New creates a Syncer. A nil client disables pushing entirely (offline
// profile); triggers then no-op.
func New(st *store.Store, client *Client, migrator Migrator, opts Options, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	return &Syncer{
		store:    st,
		client:   client,
		migrator: migrator,
		logger:   logger,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.PushesPerMinute/60), 1),
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a push pass. Non-blocking; triggers arriving while a
// pass is already queued coalesce into one.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run processes triggers and the periodic ticker until ctx is cancelled.
// Blocks; run it in a goroutine.
func (s *Syncer) Run(ctx context.Context) error {
	if s.client == nil {
		s.logger.Info("sync disabled, no backend configured")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.trigger:
		case <-ticker.C:
		}

		if err := s.PushOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("push pass failed, will retry", "error", err)
		}
	}
}

// PushOnce runs a single push pass: collect the delta since the
// checkpoint, push every kind, advance the checkpoint. A partial failure
// leaves the checkpoint untouched so the whole delta is retried — pushes
// are idempotent upserts keyed by record id, so re-sending is safe.
func (s *Syncer) PushOnce(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	checkpoint, err := s.store.GetSyncCheckpoint(ctx)
	if err != nil {
		return err
	}

	changes, err := s.store.ChangesSince(ctx, checkpoint)
	if err != nil {
		return err
	}
	if changes.Empty() {
		return nil
	}

	deviceID, err := s.store.EnsureDeviceID(ctx)
	if err != nil {
		return err
	}

	if len(changes.Books) > 0 {
		if err := s.client.Push(ctx, "books", deviceID, changes.Books); err != nil {
			return err
		}
	}
	if len(changes.Documents) > 0 {
		if err := s.client.Push(ctx, "documents", deviceID, changes.Documents); err != nil {
			return err
		}
	}
	if len(changes.Plans) > 0 {
		if err := s.client.Push(ctx, "plans", deviceID, changes.Plans); err != nil {
			return err
		}
	}
	if len(changes.Baselines) > 0 {
		if err := s.client.Push(ctx, "baselines", deviceID, changes.Baselines); err != nil {
			return err
		}
	}
	if len(changes.Stats) > 0 {
		if err := s.client.Push(ctx, "stats", deviceID, changes.Stats); err != nil {
			return err
		}
	}

	if err := s.store.SetSyncCheckpoint(ctx, changes.MaxModifiedAt); err != nil {
		return err
	}

	s.logger.Info("pushed changes",
		"records", changes.Len(),
		"checkpoint", changes.MaxModifiedAt)
	return nil
}

// HandleSignIn migrates anonymous records to the authenticated identity
// and then triggers a push, in that order: the cloud must never see
// records under the anonymous owner.
func (s *Syncer) HandleSignIn(ctx context.Context, userID string) error {
	migrated, err := s.migrator.Migrate(ctx, domain.OwnerAnonymous, userID)
	if err != nil && !apperrors.Is(err, apperrors.ErrMigrationConflict) {
		return err
	}

	s.logger.Info("signed in", "user_id", userID, "migrated_records", migrated)
	s.Trigger()
	return nil
}

// HandleSignOut makes a final best-effort push of the signed-in user's
// remaining delta. Failure is logged and swallowed; local data stays
// intact either way.
func (s *Syncer) HandleSignOut(ctx context.Context) {
	if err := s.PushOnce(ctx); err != nil {
		s.logger.Warn("final push on sign-out failed", "error", err)
	}
	s.logger.Info("signed out")
}
