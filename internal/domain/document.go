package domain

// UploadedDocument is a user-supplied document identified by the SHA-256
// hash of its content, not by filename. The binary payload lives in the
// blob store keyed by that hash; this record only tracks reading state.
type UploadedDocument struct {
	Record

	// Hash is the lowercase hex SHA-256 of the document payload.
	Hash string `json:"hash"`

	// Name is the display name captured at ingestion. Renaming a file and
	// dropping it again does not create a second record.
	Name string `json:"name"`

	SizeBytes int64 `json:"size_bytes"`

	// Percent is the read position, 0-100.
	Percent float64 `json:"percent"`

	// PositionMarker is an opaque resumable position token.
	PositionMarker string `json:"position_marker,omitempty"`

	// AddedAt is the creation time in unix milliseconds. Identity
	// migration preserves it.
	AddedAt int64 `json:"added_at"`
}
