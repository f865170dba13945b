package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestEntity_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := &domain.Book{
		Record: domain.Record{OwnerID: domain.OwnerAnonymous},
		Kind:   domain.BookKindPhysical,
		Title:  "The Left Hand of Darkness",
		Author: "Ursula K. Le Guin",
	}
	require.NoError(t, s.Books.Create(ctx, "bk-1", book))

	got, err := s.Books.Get(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", got.ID)
	assert.Equal(t, "The Left Hand of Darkness", got.Title)
	assert.Positive(t, got.ModifiedAt)
}

func TestEntity_CreateDuplicateFails(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk-1", &domain.Book{Title: "A"}))

	err := s.Books.Create(ctx, "bk-1", &domain.Book{Title: "B"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestEntity_GetMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Books.Get(context.Background(), "bk-nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEntity_GetByIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	doc := &domain.UploadedDocument{
		Record: domain.Record{OwnerID: "user-1"},
		Hash:   "abc123",
		Name:   "paper.pdf",
	}
	require.NoError(t, s.Documents.Create(ctx, "doc-1", doc))

	got, err := s.Documents.GetByIndex(ctx, "hash", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)

	_, err = s.Documents.GetByIndex(ctx, "hash", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntity_IndexConflictOnCreate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Documents.Create(ctx, "doc-1", &domain.UploadedDocument{Hash: "same"}))

	err := s.Documents.Create(ctx, "doc-2", &domain.UploadedDocument{Hash: "same"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestEntity_PatchBumpsModifiedAt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk-1", &domain.Book{Title: "A"}))
	before, err := s.Books.Get(ctx, "bk-1")
	require.NoError(t, err)

	patched, err := s.Books.Patch(ctx, "bk-1", func(b *domain.Book) error {
		b.CurrentUnit = 42
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 42, patched.CurrentUnit)
	assert.Greater(t, patched.ModifiedAt, before.ModifiedAt)
}

func TestEntity_PatchErrorLeavesRecordUntouched(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk-1", &domain.Book{Title: "A", CurrentUnit: 7}))
	before, err := s.Books.Get(ctx, "bk-1")
	require.NoError(t, err)

	_, err = s.Books.Patch(ctx, "bk-1", func(b *domain.Book) error {
		b.CurrentUnit = 99
		return apperrors.StaleWrite("older than applied")
	})
	require.ErrorIs(t, err, apperrors.ErrStaleWrite)

	after, err := s.Books.Get(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 7, after.CurrentUnit)
	assert.Equal(t, before.ModifiedAt, after.ModifiedAt)
}

func TestEntity_ModifiedAtMonotonicAcrossPatches(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk-1", &domain.Book{Title: "A"}))

	var prev int64
	for i := 0; i < 20; i++ {
		patched, err := s.Books.Patch(ctx, "bk-1", func(b *domain.Book) error {
			b.CurrentUnit = i
			return nil
		})
		require.NoError(t, err)
		assert.Greater(t, patched.ModifiedAt, prev)
		prev = patched.ModifiedAt
	}
}

func TestEntity_EnsureCreatesOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	stats, created, err := s.Stats.Ensure(ctx, "user-1", func() *domain.UserStats {
		return domain.NewUserStats("user-1")
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, stats.FreezeAvailable)

	_, created, err = s.Stats.Ensure(ctx, "user-1", func() *domain.UserStats {
		t.Fatal("build must not run for an existing record")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEntity_EnsureConcurrent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	const goroutines = 8
	var wg sync.WaitGroup
	createdCount := make(chan bool, goroutines)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.Stats.Ensure(ctx, "user-1", func() *domain.UserStats {
				return domain.NewUserStats("user-1")
			})
			assert.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	total := 0
	for created := range createdCount {
		if created {
			total++
		}
	}
	assert.Equal(t, 1, total, "exactly one goroutine should create the record")
}

func TestEntity_TombstoneKeepsRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Plans.Create(ctx, "user-1:bk-1", &domain.ReadingPlan{
		Record: domain.Record{OwnerID: "user-1"},
		BookID: "bk-1",
	}))

	require.NoError(t, s.Plans.Tombstone(ctx, "user-1:bk-1"))

	got, err := s.Plans.Get(ctx, "user-1:bk-1")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
}

func TestEntity_ListOwned(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk-1", &domain.Book{Record: domain.Record{OwnerID: "user-1"}}))
	require.NoError(t, s.Books.Create(ctx, "bk-2", &domain.Book{Record: domain.Record{OwnerID: "user-1"}}))
	require.NoError(t, s.Books.Create(ctx, "bk-3", &domain.Book{Record: domain.Record{OwnerID: "user-2"}}))
	require.NoError(t, s.Books.Tombstone(ctx, "bk-2"))

	owned, err := s.Books.ListOwned(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "bk-1", owned[0].ID)
}
