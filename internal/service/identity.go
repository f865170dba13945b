package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// errAbortPatch aborts a Patch without writing when the ownership check
// inside the transaction fails.
var errAbortPatch = errors.New("abort patch")

// IdentityService re-owns anonymous records when the user signs in. Until
// then everything belongs to the anonymous sentinel owner; after a
// successful sign-in the same data must live under the authenticated
// identity, with creation timestamps intact.
type IdentityService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(st *store.Store, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		store:  st,
		logger: logger,
	}
}

// Migrate rewrites every live book and uploaded document owned by
// fromOwnerID to toOwnerID and returns how many records moved.
//
// Each record migrates in its own atomic patch, so a crash mid-migration
// leaves a clean prefix done and the rest still anonymous; re-running
// finishes the job. A record that another routine migrated between the
// scan and the patch counts as migrated, not as a failure — the outcome
// the caller asked for already holds.
func (s *IdentityService) Migrate(ctx context.Context, fromOwnerID, toOwnerID string) (int, error) {
	if fromOwnerID == toOwnerID {
		return 0, nil
	}

	migrated := 0

	books, err := s.store.Books.ListOwned(ctx, fromOwnerID)
	if err != nil {
		return migrated, err
	}
	for _, book := range books {
		moved, err := migrateRecord(ctx, s.store.Books, book.ID, fromOwnerID, toOwnerID,
			func(b *domain.Book) *int64 { return &b.AddedAt })
		if err != nil {
			return migrated, err
		}
		if moved {
			migrated++
		}
	}

	docs, err := s.store.Documents.ListOwned(ctx, fromOwnerID)
	if err != nil {
		return migrated, err
	}
	for _, doc := range docs {
		moved, err := migrateRecord(ctx, s.store.Documents, doc.ID, fromOwnerID, toOwnerID,
			func(d *domain.UploadedDocument) *int64 { return &d.AddedAt })
		if err != nil {
			return migrated, err
		}
		if moved {
			migrated++
		}
	}

	if migrated > 0 {
		s.logger.Info("identity migration complete",
			"from", fromOwnerID,
			"to", toOwnerID,
			"records", migrated)
	}
	return migrated, nil
}

// migrateRecord atomically re-owns one record. The ownership check runs
// inside the patch transaction: if the record no longer belongs to
// fromOwnerID someone else migrated it first, which is the desired end
// state, so it reports moved=true without writing.
func migrateRecord[T any](
	ctx context.Context,
	entity *store.Entity[T],
	id, fromOwnerID, toOwnerID string,
	addedAt func(*T) *int64,
) (bool, error) {
	alreadyMigrated := false

	_, err := entity.Patch(ctx, id, func(record *T) error {
		rec := entity.Record(record)
		if rec.OwnerID != fromOwnerID {
			alreadyMigrated = rec.OwnerID == toOwnerID
			// Abort the write; the envelope must not be touched.
			return errAbortPatch
		}

		// AddedAt predates some schema versions; fall back to the record's
		// last modification so the timestamp survives migration non-zero.
		if ts := addedAt(record); *ts == 0 {
			*ts = rec.ModifiedAt
		}
		rec.OwnerID = toOwnerID
		return nil
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errAbortPatch) {
		return alreadyMigrated, nil
	}
	return false, err
}
