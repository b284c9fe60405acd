/*
Package notify generates the agent's in-app reminder feed.

PURPOSE:
  Scans the agent's policy list and produces two notification kinds:

    payment-verification-due   a pending policy's first payment should have
                               cleared the bank by now; go confirm it
    cancellation-follow-up     a policy cancelled in the last 3 days; call
                               the client before the cancellation sticks

  Notifications are DERIVED state. They are recomputed fresh on every call,
  carry a per-render id, and are never persisted. The generator stops
  emitting the moment the triggering condition no longer holds (a verified
  policy leaves Pending; a follow-up ages past day 3). It never mutates
  anything - operator actions go through the store, not through here.

PRIORITY MODEL:
  Verification: low when freshly due, medium at 2 business days overdue,
  high at 5+. Follow-up: urgent on day 1, high on days 2-3; day 3 is the
  last chance, so it escalates to the retention team.

ORDERING:
  Follow-ups before verifications (a cancellation in progress outranks a
  payment check). Follow-ups sort by day ascending (day 1 = most urgent);
  verifications by priority then overdue count, both descending.

SEE ALSO:
  - commission/cancellation.go: shared cancellation-date rule
  - calendar/: business-day arithmetic behind the due/overdue transitions
*/
package notify

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// TYPES
// =============================================================================

type Kind string

const (
	KindPaymentVerification  Kind = "payment_verification"
	KindCancellationFollowUp Kind = "cancellation_followup"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// rank orders priorities for sorting; higher sorts first.
func (p Priority) rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Assignee is who a follow-up is routed to.
type Assignee string

const (
	AssigneeAgent         Assignee = "agent"
	AssigneeRetentionTeam Assignee = "retention_team"
)

// Notification is one reminder row in the agent's feed. ID is generated per
// render; everything else is a pure function of the inputs.
type Notification struct {
	ID         string
	Kind       Kind
	PolicyID   string
	ClientName string
	Priority   Priority

	// Payment-verification fields
	FirstPaymentDate    *calendar.Date
	BusinessDaysOverdue int
	ConfirmationText    string

	// Cancellation-follow-up fields
	CancelledDate         *calendar.Date
	DaysSinceCancellation int
	FollowUpDay           int // 1-3
	AssignedTo            Assignee
	ContactedToday        bool
	LastContactDate       *calendar.Date
}

// ContactInfo is what the contact-tracking store knows about one policy's
// outreach history, used to avoid duplicate "call the client" prompts.
type ContactInfo struct {
	ContactedToday bool
	LastContact    *calendar.Date
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate scans policies and returns the freshly computed notification
// list. contacts is keyed by policy id; a missing key means no recorded
// outreach. Pure read: policies and contacts are never modified.
func Generate(policies []commission.Policy, contacts map[string]ContactInfo, now calendar.Date) []Notification {
	var followUps, verifications []Notification

	for _, p := range policies {
		if n, ok := paymentVerification(p, now); ok {
			verifications = append(verifications, n)
		}
		if n, ok := cancellationFollowUp(p, contacts[p.ID], now); ok {
			followUps = append(followUps, n)
		}
	}

	sort.SliceStable(followUps, func(i, j int) bool {
		return followUps[i].FollowUpDay < followUps[j].FollowUpDay
	})
	sort.SliceStable(verifications, func(i, j int) bool {
		a, b := verifications[i], verifications[j]
		if a.Priority.rank() != b.Priority.rank() {
			return a.Priority.rank() > b.Priority.rank()
		}
		return a.BusinessDaysOverdue > b.BusinessDaysOverdue
	})

	return append(followUps, verifications...)
}

// paymentVerification emits once a pending policy's first payment is past
// the 2-business-day bank confirmation window. Resolution is not tracked
// here: when the status leaves Pending the condition simply stops holding.
func paymentVerification(p commission.Policy, now calendar.Date) (Notification, bool) {
	if p.Status != commission.StatusPending || p.FirstPaymentDate == nil {
		return Notification{}, false
	}
	first := *p.FirstPaymentDate
	if !calendar.BankConfirmationDue(first, now) {
		return Notification{}, false
	}

	overdue := calendar.BusinessDaysOverdue(first, now)
	priority := PriorityLow
	switch {
	case overdue >= 5:
		priority = PriorityHigh
	case overdue >= 2:
		priority = PriorityMedium
	}

	return Notification{
		ID:                  uuid.NewString(),
		Kind:                KindPaymentVerification,
		PolicyID:            p.ID,
		ClientName:          p.ClientName,
		Priority:            priority,
		FirstPaymentDate:    &first,
		BusinessDaysOverdue: overdue,
		ConfirmationText: fmt.Sprintf(
			"Confirm %s's first payment of policy %s cleared the bank (payment dated %s, confirmable since %s).",
			p.ClientName, p.PolicyNumber, first, calendar.AddBusinessDays(first, 2)),
	}, true
}

// cancellationFollowUp emits on days 1-3 after cancellation, using the
// shared cancellation-date rule. Legacy rows with no recorded date only
// qualify within the inference window; older ones are suppressed rather
// than resurrected. After day 3 the feed goes silent.
func cancellationFollowUp(p commission.Policy, contact ContactInfo, now calendar.Date) (Notification, bool) {
	cancel := commission.CancellationOf(p, now)
	if !cancel.Known() {
		return Notification{}, false
	}

	days := calendar.DaysBetween(cancel.Date, now)
	if days < 1 || days > 3 {
		return Notification{}, false
	}

	priority := PriorityHigh
	if days == 1 {
		priority = PriorityUrgent
	}
	assignee := AssigneeAgent
	if days == 3 {
		assignee = AssigneeRetentionTeam
	}

	cancelled := cancel.Date
	return Notification{
		ID:                    uuid.NewString(),
		Kind:                  KindCancellationFollowUp,
		PolicyID:              p.ID,
		ClientName:            p.ClientName,
		Priority:              priority,
		CancelledDate:         &cancelled,
		DaysSinceCancellation: days,
		FollowUpDay:           days,
		AssignedTo:            assignee,
		ContactedToday:        contact.ContactedToday,
		LastContactDate:       contact.LastContact,
	}, true
}
