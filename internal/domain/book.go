package domain

// BookKind distinguishes how a book's position is measured.
type BookKind string

// Book kinds.
const (
	// BookKindPhysical is a physical or structured-text book whose position
	// is tracked in units (pages) and word counts.
	BookKindPhysical BookKind = "physical"
	// BookKindPaginated is a paginated document whose position is tracked
	// as a percentage.
	BookKindPaginated BookKind = "paginated-document"
)

// Book is a reading subject in the user's library.
type Book struct {
	Record

	Kind   BookKind `json:"kind"`
	Title  string   `json:"title"`
	Author string   `json:"author,omitempty"`

	// TotalUnits is the page count for physical books or the percent basis
	// (100) for paginated documents.
	TotalUnits  int `json:"total_units"`
	CurrentUnit int `json:"current_unit"`

	// Percent is the current position for percent-native media, 0-100.
	Percent float64 `json:"percent"`

	// Words is the current word-count offset for structured text.
	Words int `json:"words"`

	// PositionMarker is an opaque resumable position token. The engine
	// stores and replicates it but never interprets it.
	PositionMarker string `json:"position_marker,omitempty"`

	CoverRef string `json:"cover_ref,omitempty"`

	// ProgressVersion guards position fields specifically: an update
	// carrying a lower version than the last applied one must not regress
	// the visible position. Distinct from the record-wide ModifiedAt.
	ProgressVersion int64 `json:"progress_version"`

	// AddedAt is the creation time in unix milliseconds. Identity
	// migration preserves it.
	AddedAt int64 `json:"added_at"`
}

// PositionUpdate carries one observed reading position from the UI or a
// remote replica.
type PositionUpdate struct {
	Version int64   `json:"version"`
	Unit    int     `json:"unit"`
	Percent float64 `json:"percent"`
	Words   int     `json:"words"`
	Marker  string  `json:"marker,omitempty"`
}

// PositionOutcome is the result of applying a PositionUpdate.
type PositionOutcome int

// Position outcomes.
const (
	// PositionApplied means the update advanced (or re-confirmed) the
	// stored position.
	PositionApplied PositionOutcome = iota
	// PositionStale means the update carried a version lower than the last
	// applied one; its position fields were discarded.
	PositionStale
)

// String returns the outcome name for logs.
func (o PositionOutcome) String() string {
	switch o {
	case PositionApplied:
		return "applied"
	case PositionStale:
		return "stale"
	default:
		return "unknown"
	}
}

// ApplyPosition merges a position update into the book under the progress
// version guard. A version lower than the last applied one is rejected and
// leaves every position field untouched; equal or higher versions apply.
// The caller is responsible for Touch and persistence.
func (b *Book) ApplyPosition(u PositionUpdate) PositionOutcome {
	if u.Version < b.ProgressVersion {
		return PositionStale
	}

	b.ProgressVersion = u.Version
	b.CurrentUnit = u.Unit
	b.Percent = u.Percent
	b.Words = u.Words
	if u.Marker != "" {
		b.PositionMarker = u.Marker
	}
	return PositionApplied
}

// NextPositionVersion returns the version a new local observation should
// carry: one past the last applied version.
func (b *Book) NextPositionVersion() int64 {
	return b.ProgressVersion + 1
}
