package store

import (
	"context"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

// ChangeSet holds every record modified after a checkpoint, per kind.
// Tombstones are included so deletions propagate.
type ChangeSet struct {
	Books     []*domain.Book             `json:"books,omitempty"`
	Documents []*domain.UploadedDocument `json:"documents,omitempty"`
	Plans     []*domain.ReadingPlan      `json:"plans,omitempty"`
	Baselines []*domain.DailyBaseline    `json:"baselines,omitempty"`
	Stats     []*domain.UserStats        `json:"stats,omitempty"`

	// MaxModifiedAt is the newest modified_at in the set; the sync
	// checkpoint advances to it after a successful push.
	MaxModifiedAt int64 `json:"-"`
}

// Empty reports whether the change set contains no records.
func (c *ChangeSet) Empty() bool {
	return len(c.Books) == 0 &&
		len(c.Documents) == 0 &&
		len(c.Plans) == 0 &&
		len(c.Baselines) == 0 &&
		len(c.Stats) == 0
}

// Len returns the total number of records in the set.
func (c *ChangeSet) Len() int {
	return len(c.Books) + len(c.Documents) + len(c.Plans) + len(c.Baselines) + len(c.Stats)
}

// ChangesSince collects every record modified strictly after sinceMs
// across all kinds.
func (s *Store) ChangesSince(ctx context.Context, sinceMs int64) (*ChangeSet, error) {
	changes := &ChangeSet{MaxModifiedAt: sinceMs}

	var err error
	if changes.Books, err = s.Books.ModifiedSince(ctx, sinceMs); err != nil {
		return nil, err
	}
	for _, b := range changes.Books {
		changes.noteModified(b.ModifiedAt)
	}

	if changes.Documents, err = s.Documents.ModifiedSince(ctx, sinceMs); err != nil {
		return nil, err
	}
	for _, d := range changes.Documents {
		changes.noteModified(d.ModifiedAt)
	}

	if changes.Plans, err = s.Plans.ModifiedSince(ctx, sinceMs); err != nil {
		return nil, err
	}
	for _, p := range changes.Plans {
		changes.noteModified(p.ModifiedAt)
	}

	if changes.Baselines, err = s.Baselines.ModifiedSince(ctx, sinceMs); err != nil {
		return nil, err
	}
	for _, b := range changes.Baselines {
		changes.noteModified(b.ModifiedAt)
	}

	if changes.Stats, err = s.Stats.ModifiedSince(ctx, sinceMs); err != nil {
		return nil, err
	}
	for _, u := range changes.Stats {
		changes.noteModified(u.ModifiedAt)
	}

	return changes, nil
}

func (c *ChangeSet) noteModified(modifiedAt int64) {
	if modifiedAt > c.MaxModifiedAt {
		c.MaxModifiedAt = modifiedAt
	}
}
