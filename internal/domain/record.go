package domain

import "time"

// OwnerAnonymous is the reserved owner sentinel for records created before
// the user has signed in. Identity migration re-owns these on sign-in.
const OwnerAnonymous = "local"

// Record provides the common envelope for every record kind that
// participates in synchronization. It gets embedded in each domain type.
//
// ModifiedAt is unix milliseconds and strictly increases across every
// accepted write to a record, even when the device wall clock lags a
// cloud-assigned timestamp; without the strict increase a write could be
// silently dropped by downstream replication ordering.
type Record struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	ModifiedAt int64  `json:"modified_at"`
	Deleted    bool   `json:"deleted"`
}

// NowMs returns the current wall clock in unix milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// Touch advances ModifiedAt to max(nowMs, ModifiedAt+1).
// Call this whenever the record changes.
func (r *Record) Touch(nowMs int64) {
	if nowMs <= r.ModifiedAt {
		nowMs = r.ModifiedAt + 1
	}
	r.ModifiedAt = nowMs
}

// TouchNow is Touch with the current wall clock.
func (r *Record) TouchNow() {
	r.Touch(NowMs())
}

// IsDeleted returns true if this record has been tombstoned.
func (r *Record) IsDeleted() bool {
	return r.Deleted
}

// MarkDeleted tombstones the record. Records are never physically removed
// locally so that deletions can propagate to the cloud backend.
func (r *Record) MarkDeleted() {
	r.Deleted = true
	r.TouchNow()
}

// Envelope returns the embedded Record. The store uses this to reach the
// common fields of any record kind generically.
func (r *Record) Envelope() *Record {
	return r
}
