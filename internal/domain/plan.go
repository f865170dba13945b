package domain

// ReadingPlan is the user's goal for one book: finish (or reach a target
// position) by a target date. At most one active plan exists per
// (owner, book) pair, enforced by the composite record id.
//
// The start position is captured at plan creation because "percent to
// goal" is measured from where the user was when the goal was set, not
// from zero.
type ReadingPlan struct {
	Record

	BookID string `json:"book_id"`

	// TargetDate is the goal completion day. An empty target date means
	// "no goal" and readers must treat the plan like a tombstoned one.
	TargetDate Day `json:"target_date,omitempty"`

	// TargetUnit is an optional target position (chapter or part index);
	// zero means "finish the book".
	TargetUnit int `json:"target_unit,omitempty"`

	// TargetPercent is an optional percent target for percent-native
	// media; zero means "finish the book".
	TargetPercent float64 `json:"target_percent,omitempty"`

	// Start position captured when the goal was set.
	StartUnit    int     `json:"start_unit"`
	StartPercent float64 `json:"start_percent"`
	StartWords   int     `json:"start_words"`

	CreatedAt int64 `json:"created_at"`
}

// PlanID generates the composite key "ownerID:bookID". One active plan per
// pair falls out of the key.
func PlanID(ownerID, bookID string) string {
	return ownerID + ":" + bookID
}

// HasGoal reports whether the plan represents an active goal. Tombstoned
// plans and plans without a target date are equivalent: no goal.
func (p *ReadingPlan) HasGoal() bool {
	if p == nil || p.IsDeleted() {
		return false
	}
	return !p.TargetDate.IsZero()
}
