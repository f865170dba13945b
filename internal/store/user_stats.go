package store

import (
	"context"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

// EnsureUserStats returns the stats record for an owner, creating it on
// the first streak-relevant action. There is exactly one per owner (the
// record id is the owner id) and it is never deleted.
func (s *Store) EnsureUserStats(ctx context.Context, ownerID string) (*domain.UserStats, error) {
	stats, _, err := s.Stats.Ensure(ctx, ownerID, func() *domain.UserStats {
		return domain.NewUserStats(ownerID)
	})
	return stats, err
}
