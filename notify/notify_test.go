package notify_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/notify"
)

func date(y int, m time.Month, d int) calendar.Date { return calendar.NewDate(y, m, d) }

func datePtr(d calendar.Date) *calendar.Date { return &d }

func pendingPolicy(id string, firstPayment calendar.Date) commission.Policy {
	return commission.Policy{
		ID:               id,
		ClientName:       "Dana Moss",
		PolicyNumber:     "PN-" + id,
		Status:           commission.StatusPending,
		CommissionDue:    decimal.NewFromInt(100),
		FirstPaymentDate: datePtr(firstPayment),
		CreatedAt:        firstPayment.AddDays(-10).Time(),
	}
}

func cancelledPolicy(id string, cancelled calendar.Date) commission.Policy {
	return commission.Policy{
		ID:            id,
		ClientName:    "Ray Olsen",
		Status:        commission.StatusCancelled,
		CancelledDate: datePtr(cancelled),
		CreatedAt:     cancelled.AddDays(-90).Time(),
	}
}

// =============================================================================
// PAYMENT VERIFICATION BRANCH
// =============================================================================

func TestGenerate_VerificationNotYetDue(t *testing.T) {
	// Monday payment; Tuesday is only 1 business day later.
	p := pendingPolicy("p-1", date(2025, time.August, 4))

	out := notify.Generate([]commission.Policy{p}, nil, date(2025, time.August, 5))

	assert.Empty(t, out)
}

func TestGenerate_VerificationDueAtTwoBusinessDays(t *testing.T) {
	p := pendingPolicy("p-1", date(2025, time.August, 4)) // due Wednesday Aug 6

	out := notify.Generate([]commission.Policy{p}, nil, date(2025, time.August, 6))

	require.Len(t, out, 1)
	n := out[0]
	assert.Equal(t, notify.KindPaymentVerification, n.Kind)
	assert.Equal(t, notify.PriorityLow, n.Priority)
	assert.Equal(t, 0, n.BusinessDaysOverdue)
	assert.NotEmpty(t, n.ConfirmationText)
	assert.Contains(t, n.ConfirmationText, "Dana Moss")
}

func TestGenerate_VerificationPriorityEscalation(t *testing.T) {
	p := pendingPolicy("p-1", date(2025, time.August, 4)) // due Wednesday Aug 6

	// Friday Aug 8: 2 business days overdue -> medium.
	out := notify.Generate([]commission.Policy{p}, nil, date(2025, time.August, 8))
	require.Len(t, out, 1)
	assert.Equal(t, notify.PriorityMedium, out[0].Priority)
	assert.Equal(t, 2, out[0].BusinessDaysOverdue)

	// Wednesday Aug 13: 5 business days overdue -> high.
	out = notify.Generate([]commission.Policy{p}, nil, date(2025, time.August, 13))
	require.Len(t, out, 1)
	assert.Equal(t, notify.PriorityHigh, out[0].Priority)
	assert.Equal(t, 5, out[0].BusinessDaysOverdue)
}

func TestGenerate_VerificationStopsOnceResolved(t *testing.T) {
	p := pendingPolicy("p-1", date(2025, time.August, 4))
	p.Status = commission.StatusActive // verified externally

	out := notify.Generate([]commission.Policy{p}, nil, date(2025, time.August, 13))

	assert.Empty(t, out)
}

// =============================================================================
// CANCELLATION FOLLOW-UP BRANCH
// =============================================================================

func TestGenerate_FollowUpDayOne_Urgent(t *testing.T) {
	now := date(2025, time.August, 12)
	p := cancelledPolicy("c-1", now.AddDays(-1))

	out := notify.Generate([]commission.Policy{p}, nil, now)

	require.Len(t, out, 1)
	n := out[0]
	assert.Equal(t, notify.KindCancellationFollowUp, n.Kind)
	assert.Equal(t, notify.PriorityUrgent, n.Priority)
	assert.Equal(t, 1, n.FollowUpDay)
	assert.Equal(t, notify.AssigneeAgent, n.AssignedTo)
}

func TestGenerate_FollowUpDayThree_EscalatesToRetention(t *testing.T) {
	now := date(2025, time.August, 12)
	p := cancelledPolicy("c-1", now.AddDays(-3))

	out := notify.Generate([]commission.Policy{p}, nil, now)

	require.Len(t, out, 1)
	assert.Equal(t, notify.PriorityHigh, out[0].Priority)
	assert.Equal(t, 3, out[0].FollowUpDay)
	assert.Equal(t, notify.AssigneeRetentionTeam, out[0].AssignedTo)
}

func TestGenerate_FollowUpSilentAfterDayThree(t *testing.T) {
	now := date(2025, time.August, 12)
	p := cancelledPolicy("c-1", now.AddDays(-4))

	out := notify.Generate([]commission.Policy{p}, nil, now)

	assert.Empty(t, out)
}

func TestGenerate_LegacyCancellationOutsideWindowSuppressed(t *testing.T) {
	// Cancelled, no cancelled_date, created 4 days ago: inside the inference
	// window, so a day-4 legacy cancellation... is past follow-up day 3 and
	// produces nothing.
	now := date(2025, time.August, 12)
	p := commission.Policy{
		ID:         "c-legacy",
		ClientName: "Ray Olsen",
		Status:     commission.StatusCancelled,
		CreatedAt:  now.AddDays(-4).Time(),
	}

	out := notify.Generate([]commission.Policy{p}, nil, now)
	assert.Empty(t, out)

	// Created 30 days ago: no usable cancellation date at all.
	p.CreatedAt = now.AddDays(-30).Time()
	out = notify.Generate([]commission.Policy{p}, nil, now)
	assert.Empty(t, out)
}

func TestGenerate_FollowUpCarriesContactInfo(t *testing.T) {
	now := date(2025, time.August, 12)
	p := cancelledPolicy("c-1", now.AddDays(-2))
	last := now.AddDays(-1)
	contacts := map[string]notify.ContactInfo{
		"c-1": {ContactedToday: true, LastContact: &last},
	}

	out := notify.Generate([]commission.Policy{p}, contacts, now)

	require.Len(t, out, 1)
	assert.True(t, out[0].ContactedToday)
	require.NotNil(t, out[0].LastContactDate)
	assert.Equal(t, last, *out[0].LastContactDate)
}

// =============================================================================
// ORDERING AND IDEMPOTENCE
// =============================================================================

func TestGenerate_Ordering(t *testing.T) {
	now := date(2025, time.August, 13) // Wednesday

	followUpDay2 := cancelledPolicy("c-2", now.AddDays(-2))
	followUpDay1 := cancelledPolicy("c-1", now.AddDays(-1))
	verifyHigh := pendingPolicy("v-high", date(2025, time.August, 4))  // 5 bd overdue
	verifyLow := pendingPolicy("v-low", date(2025, time.August, 11))   // freshly due

	out := notify.Generate(
		[]commission.Policy{verifyLow, followUpDay2, verifyHigh, followUpDay1},
		nil, now)

	require.Len(t, out, 4)
	assert.Equal(t, "c-1", out[0].PolicyID, "day-1 follow-up first")
	assert.Equal(t, "c-2", out[1].PolicyID)
	assert.Equal(t, "v-high", out[2].PolicyID, "high-priority verification before low")
	assert.Equal(t, "v-low", out[3].PolicyID)
}

func TestGenerate_IdempotentModuloID(t *testing.T) {
	now := date(2025, time.August, 12)
	policies := []commission.Policy{
		cancelledPolicy("c-1", now.AddDays(-1)),
		pendingPolicy("p-1", date(2025, time.August, 4)),
	}

	first := notify.Generate(policies, nil, now)
	second := notify.Generate(policies, nil, now)

	require.Equal(t, len(first), len(second))
	for i := range first {
		a, b := first[i], second[i]
		assert.NotEqual(t, a.ID, b.ID, "ids are per-render")
		a.ID, b.ID = "", ""
		assert.Equal(t, a, b, "value-equal apart from id")
	}
}
