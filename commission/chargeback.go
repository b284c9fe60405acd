package commission

import (
	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// CHARGEBACK DETECTION - early-cancellation clawback
// =============================================================================

// ChargebackWindowDays is the carrier clawback window: a policy cancelled
// within this many days of creation claws back its commission.
const ChargebackWindowDays = 30

// Chargeback is the result of classifying a cancelled policy.
type Chargeback struct {
	IsChargeback bool
	// DaysToCancel is the calendar days from creation to cancellation.
	// Zero when no usable cancellation date exists.
	DaysToCancel int
	// Amount equals the policy's commission due when IsChargeback, else zero.
	Amount decimal.Decimal
	// Source records how the cancellation date was established.
	Source CancelSource
}

// DetectChargeback classifies a policy. It uses the same cancellation-date
// rule as the follow-up notifier (CancellationOf): a recorded cancelled_date
// wins; legacy rows fall back to created_at inside the inference window; a
// cancelled policy with no usable date is never a chargeback.
func DetectChargeback(p Policy, now calendar.Date) Chargeback {
	cancel := CancellationOf(p, now)
	if !cancel.Known() {
		return Chargeback{Amount: decimal.Zero, Source: cancel.Source}
	}

	days := calendar.DaysBetween(p.CreatedDate(), cancel.Date)
	if days < 0 || days > ChargebackWindowDays {
		return Chargeback{DaysToCancel: days, Amount: decimal.Zero, Source: cancel.Source}
	}
	return Chargeback{
		IsChargeback: true,
		DaysToCancel: days,
		Amount:       p.CommissionDue,
		Source:       cancel.Source,
	}
}
