// Package service orchestrates the engine's operations over the record
// store: library management, position reporting under the version guard,
// goals, streak stats, and identity migration.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pageturnapp/pageturn-engine/internal/blob"
	"github.com/pageturnapp/pageturn-engine/internal/cache"
	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
	"github.com/pageturnapp/pageturn-engine/internal/id"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// LibraryService manages books and uploaded documents.
type LibraryService struct {
	store  *store.Store
	blobs  *blob.Storage
	hints  *cache.Hints
	logger *slog.Logger

	// onWrite is the fire-and-forget sync trigger invoked after every
	// accepted mutation.
	onWrite func()
}

// NewLibraryService creates a new library service.
func NewLibraryService(st *store.Store, blobs *blob.Storage, hints *cache.Hints, onWrite func(), logger *slog.Logger) *LibraryService {
	if onWrite == nil {
		onWrite = func() {}
	}
	return &LibraryService{
		store:   st,
		blobs:   blobs,
		hints:   hints,
		logger:  logger,
		onWrite: onWrite,
	}
}

// AddBookRequest contains the data for adding a book to the library.
type AddBookRequest struct {
	Kind       domain.BookKind `json:"kind" validate:"required,oneof=physical paginated-document"`
	Title      string          `json:"title" validate:"required,max=500"`
	Author     string          `json:"author" validate:"max=500"`
	TotalUnits int             `json:"total_units" validate:"gte=0"`
	CoverRef   string          `json:"cover_ref"`
}

// AddBook creates a book record owned by ownerID.
func (s *LibraryService) AddBook(ctx context.Context, ownerID string, req AddBookRequest) (*domain.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	bookID, err := id.Generate("bk")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Record:     domain.Record{OwnerID: ownerID},
		Kind:       req.Kind,
		Title:      req.Title,
		Author:     req.Author,
		TotalUnits: req.TotalUnits,
		CoverRef:   req.CoverRef,
		AddedAt:    time.Now().UnixMilli(),
	}
	if err := s.store.Books.Create(ctx, bookID, book); err != nil {
		return nil, err
	}

	s.logger.Info("book added", "book_id", bookID, "title", req.Title)
	s.onWrite()
	return book, nil
}

// GetBook returns a live book. Tombstoned books come back as not found.
func (s *LibraryService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.IsDeleted() {
		return nil, apperrors.NotFoundf("book %s has been removed", bookID)
	}
	return book, nil
}

// ListBooks returns every live book owned by ownerID.
func (s *LibraryService) ListBooks(ctx context.Context, ownerID string) ([]*domain.Book, error) {
	return s.store.Books.ListOwned(ctx, ownerID)
}

// RemoveBook tombstones a book and drops its resume hint. The record stays
// so the deletion propagates to the cloud.
func (s *LibraryService) RemoveBook(ctx context.Context, bookID string) error {
	if err := s.store.Books.Tombstone(ctx, bookID); err != nil {
		return err
	}

	s.hints.Delete(bookID)
	s.logger.Info("book removed", "book_id", bookID)
	s.onWrite()
	return nil
}

// IngestDocument stores a file's contents in the blob store and creates an
// UploadedDocument record keyed by content hash. Re-ingesting bytes that
// already exist returns the existing record instead of a duplicate.
func (s *LibraryService) IngestDocument(ctx context.Context, ownerID, path string) (*domain.UploadedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	hash, size, err := s.blobs.Put(f)
	if err != nil {
		return nil, fmt.Errorf("store document blob: %w", err)
	}

	existing, err := s.store.Documents.GetByIndex(ctx, "hash", hash)
	if err == nil {
		s.logger.Info("document already in library",
			"doc_id", existing.ID,
			"hash", hash)
		return existing, nil
	}
	if !apperrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	docID, err := id.Generate("doc")
	if err != nil {
		return nil, fmt.Errorf("generate document ID: %w", err)
	}

	doc := &domain.UploadedDocument{
		Record:    domain.Record{OwnerID: ownerID},
		Hash:      hash,
		Name:      documentName(path),
		SizeBytes: size,
		AddedAt:   time.Now().UnixMilli(),
	}
	if err := s.store.Documents.Create(ctx, docID, doc); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			// Concurrent ingestion of the same bytes; use the winner.
			return s.store.Documents.GetByIndex(ctx, "hash", hash)
		}
		return nil, err
	}

	s.logger.Info("document ingested",
		"doc_id", docID,
		"hash", hash,
		"size_bytes", size)
	s.onWrite()
	return doc, nil
}

// ListDocuments returns every live document owned by ownerID.
func (s *LibraryService) ListDocuments(ctx context.Context, ownerID string) ([]*domain.UploadedDocument, error) {
	return s.store.Documents.ListOwned(ctx, ownerID)
}

// RemoveDocument tombstones a document record. The blob stays: another
// record may share the hash, and blobs are cheap compared to re-ingesting.
func (s *LibraryService) RemoveDocument(ctx context.Context, docID string) error {
	if err := s.store.Documents.Tombstone(ctx, docID); err != nil {
		return err
	}

	s.logger.Info("document removed", "doc_id", docID)
	s.onWrite()
	return nil
}

// documentName derives the display name from the dropped file's base name.
func documentName(path string) string {
	return filepath.Base(path)
}
