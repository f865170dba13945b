package store

import (
	"context"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

// EnsureDailyBaseline returns the baseline for (owner, book, day),
// creating it lazily from the currently observed position if this is the
// first observation of the day. The created flag reports which happened.
//
// A freshly created baseline equals the current position, which makes
// "achieved today" zero immediately after a day rollover — intended.
func (s *Store) EnsureDailyBaseline(
	ctx context.Context,
	ownerID, bookID string,
	day domain.Day,
	observed domain.PositionUpdate,
) (*domain.DailyBaseline, bool, error) {
	id := domain.BaselineID(ownerID, bookID, day)

	baseline, created, err := s.Baselines.Ensure(ctx, id, func() *domain.DailyBaseline {
		return domain.NewDailyBaseline(ownerID, bookID, day, observed)
	})
	if err != nil {
		return nil, false, err
	}

	if !created && baseline.SchemaVersion < domain.BaselineSchemaVersion {
		// Schema-evolution repair: baselines written by an older schema
		// predate the percent/word-count sub-fields. Fill them from this
		// observation, once.
		repaired, err := s.Baselines.Patch(ctx, id, func(b *domain.DailyBaseline) error {
			b.Repair(observed.Percent, observed.Words)
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		s.logger.Debug("repaired daily baseline", "baseline_id", id)
		baseline = repaired
	}

	return baseline, created, nil
}
