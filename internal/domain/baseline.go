package domain

// BaselineSchemaVersion is the schema generation of DailyBaseline records
// written by this build. Version 1 tracked the unit position only; version
// 2 added the percent and word-count sub-fields.
const BaselineSchemaVersion = 2

// DailyBaseline anchors "progress made today" for one (owner, book, day).
// It captures the position at the first observation of that day and is
// never retroactively corrected to the true start-of-day value; creating
// it from the first observation is an accepted source of imprecision.
//
// Exactly one non-tombstoned baseline exists per (owner, book, day). After
// creation the only permitted mutation is Repair.
type DailyBaseline struct {
	Record

	BookID string `json:"book_id"`
	Day    Day    `json:"day"`

	Unit    int     `json:"unit"`
	Percent float64 `json:"percent"`
	Words   int     `json:"words"`

	// SchemaVersion records which schema generation wrote the baseline.
	// Records written before the field existed unmarshal as zero.
	SchemaVersion int `json:"schema_version"`
}

// NewDailyBaseline builds a baseline anchored at the observed position,
// stamped with the current schema version.
func NewDailyBaseline(ownerID, bookID string, day Day, observed PositionUpdate) *DailyBaseline {
	return &DailyBaseline{
		Record:        Record{OwnerID: ownerID},
		BookID:        bookID,
		Day:           day,
		Unit:          observed.Unit,
		Percent:       observed.Percent,
		Words:         observed.Words,
		SchemaVersion: BaselineSchemaVersion,
	}
}

// BaselineID generates the composite key "ownerID:bookID:day".
func BaselineID(ownerID, bookID string, day Day) string {
	return ownerID + ":" + bookID + ":" + string(day)
}

// Repair backfills the sub-fields a pre-version-2 schema never tracked,
// using the given observation, and stamps the record current. A baseline
// already on the current schema is never touched: a zero there is a real
// anchor (a reader starting the day at position zero), not a missing
// field. Returns true if the record changed.
func (b *DailyBaseline) Repair(percent float64, words int) bool {
	if b.SchemaVersion >= BaselineSchemaVersion {
		return false
	}
	b.Percent = percent
	b.Words = words
	b.SchemaVersion = BaselineSchemaVersion
	return true
}
