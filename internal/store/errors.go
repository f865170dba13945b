package store

import apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"

// Sentinel errors. These are the engine's coded errors so callers can
// match with errors.Is against either package.
var (
	ErrNotFound      = apperrors.ErrNotFound
	ErrAlreadyExists = apperrors.ErrAlreadyExists
)
