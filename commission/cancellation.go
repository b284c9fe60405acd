package commission

import "github.com/warp/commission-engine/calendar"

// =============================================================================
// CANCELLATION DATE LOOKUP - the one shared inference rule
// =============================================================================

// CancelSource says where a cancellation date came from. Rows written before
// the cancelled_date column existed have no recorded date; for those we may
// fall back to created_at, but only within a narrow window - an old legacy
// row must not resurrect as a fresh cancellation.
type CancelSource string

const (
	// CancelSourceRecorded means cancelled_date was present on the row.
	CancelSourceRecorded CancelSource = "recorded"
	// CancelSourceLegacyCreated means the date was inferred from created_at
	// on a legacy row lacking cancelled_date.
	CancelSourceLegacyCreated CancelSource = "legacy_created"
	// CancelSourceUnknown means no usable date: the policy is cancelled but
	// its age cannot be established. Consumers must treat it conservatively
	// (no chargeback, no follow-up).
	CancelSourceUnknown CancelSource = "unknown"
)

// LegacyInferenceWindowDays bounds how old a legacy row may be (by
// created_at) for the fallback to apply.
const LegacyInferenceWindowDays = 7

// Cancellation is the resolved cancellation date plus its provenance.
type Cancellation struct {
	Date   calendar.Date
	Source CancelSource
}

// Known reports whether a usable cancellation date was resolved.
func (c Cancellation) Known() bool { return c.Source != CancelSourceUnknown }

// CancellationOf resolves when a policy was cancelled. This is the single
// inference rule shared by the chargeback detector and the follow-up
// notifier, so both agree on "cancelled how long ago":
//
//   1. status must be Cancelled, else unknown
//   2. cancelled_date, when present, wins
//   3. otherwise fall back to created_at, valid only when created_at is
//      within LegacyInferenceWindowDays of now
func CancellationOf(p Policy, now calendar.Date) Cancellation {
	if p.Status != StatusCancelled {
		return Cancellation{Source: CancelSourceUnknown}
	}
	if p.CancelledDate != nil {
		return Cancellation{Date: *p.CancelledDate, Source: CancelSourceRecorded}
	}
	created := p.CreatedDate()
	if calendar.DaysBetween(created, now) <= LegacyInferenceWindowDays {
		return Cancellation{Date: created, Source: CancelSourceLegacyCreated}
	}
	return Cancellation{Source: CancelSourceUnknown}
}
