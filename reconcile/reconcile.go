/*
Package reconcile implements the payroll reconciliation workflow.

PURPOSE:
  Every payroll period the agent cross-checks in-app policy records against
  the externally produced commission spreadsheet. Each policy in the period
  gets exactly one action:

    on_spreadsheet      commission confirmed correct
    missing_commission  absent or wrong amount (optionally flagged urgent)
    request_removal     should not be on the payout (requires a reason)

  This package validates the completion gate, summarizes the period,
  computes the verification write-back, and groups actions into outbound
  chat batches.

COMPLETION GATE:
  Submission is all-or-nothing at validation time: every policy in the
  period must carry an action and every removal must carry a non-blank
  reason, or the submit is rejected with ValidationFailed before anything is
  applied. The write-back itself is sequential and non-transactional (one
  update per policy); a mid-loop store failure leaves earlier policies
  verified, and the caller reports that partial result instead of hiding it.

SEE ALSO:
  - payroll/: period membership and expected commission
  - chat/: renders the batches this package builds
*/
package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/payroll"
)

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionOnSpreadsheet     Action = "on_spreadsheet"
	ActionMissingCommission Action = "missing_commission"
	ActionRequestRemoval    Action = "request_removal"
)

// ValidAction reports whether a is one of the three recognized actions.
func ValidAction(a Action) bool {
	switch a {
	case ActionOnSpreadsheet, ActionMissingCommission, ActionRequestRemoval:
		return true
	}
	return false
}

// Record is the operator's decision for one policy in the period.
type Record struct {
	PolicyID string
	Action   Action
	Urgent   bool   // missing_commission only
	Reason   string // request_removal only; must be non-blank
}

// =============================================================================
// PERIOD VIEW - what the operator reconciles against
// =============================================================================

// PeriodView is the period's policies split into verified / unverified /
// chargeback buckets, with the expected-commission rollup.
type PeriodView struct {
	Period           payroll.Period
	Policies         []commission.Policy
	ExpectedTotal    decimal.Decimal
	VerifiedAmount   decimal.Decimal
	UnverifiedAmount decimal.Decimal
	ChargebackAmount decimal.Decimal
	ChargebackCount  int
}

// BuildPeriodView groups the agent's policies into the payroll period ending
// on periodEnd and separates verified, unverified, and chargeback amounts.
func BuildPeriodView(cal *payroll.Calendar, policies []commission.Policy, periodEnd, now calendar.Date) (PeriodView, error) {
	expected, err := cal.ExpectedCommissionForPeriod(policies, periodEnd)
	if err != nil {
		return PeriodView{}, err
	}

	view := PeriodView{
		Period:           expected.Period,
		Policies:         expected.Policies,
		ExpectedTotal:    expected.Total,
		VerifiedAmount:   decimal.Zero,
		UnverifiedAmount: decimal.Zero,
		ChargebackAmount: decimal.Zero,
	}
	for _, p := range expected.Policies {
		if cb := commission.DetectChargeback(p, now); cb.IsChargeback {
			view.ChargebackAmount = view.ChargebackAmount.Add(cb.Amount)
			view.ChargebackCount++
			continue
		}
		if p.IsVerified() {
			view.VerifiedAmount = view.VerifiedAmount.Add(p.CommissionDue)
		} else {
			view.UnverifiedAmount = view.UnverifiedAmount.Add(p.CommissionDue)
		}
	}
	return view, nil
}

// =============================================================================
// COMPLETION GATE
// =============================================================================

// ValidateSubmission enforces the completion gate for the policies in a
// period: every policy actioned, every removal justified. Returns a
// ValidationError listing every violation, or nil when the submit may
// proceed.
func ValidateSubmission(policies []commission.Policy, actions map[string]Record) error {
	var problems []string
	for _, p := range policies {
		rec, ok := actions[p.ID]
		if !ok || rec.Action == "" {
			problems = append(problems, fmt.Sprintf("policy %s (%s) has no action", p.ID, p.ClientName))
			continue
		}
		if !ValidAction(rec.Action) {
			problems = append(problems, fmt.Sprintf("policy %s has unknown action %q", p.ID, rec.Action))
			continue
		}
		if rec.Action == ActionRequestRemoval && isBlank(rec.Reason) {
			problems = append(problems, fmt.Sprintf("removal request for policy %s (%s) is missing a reason", p.ID, p.ClientName))
		}
	}
	if len(problems) > 0 {
		return &commission.ValidationError{Problems: problems}
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the per-action rollup across the period.
type Summary struct {
	Total             int
	OnSpreadsheet     int
	MissingCommission int
	UrgentMissing     int
	RemovalRequests   int
	Unactioned        int

	ConfirmedTotal decimal.Decimal
	MissingTotal   decimal.Decimal
	RemovalTotal   decimal.Decimal
}

// Summarize counts and totals the operator's actions over the period's
// policies. Safe to call on an incomplete action set; Unactioned counts the
// gap.
func Summarize(policies []commission.Policy, actions map[string]Record) Summary {
	s := Summary{
		Total:          len(policies),
		ConfirmedTotal: decimal.Zero,
		MissingTotal:   decimal.Zero,
		RemovalTotal:   decimal.Zero,
	}
	for _, p := range policies {
		rec, ok := actions[p.ID]
		if !ok || rec.Action == "" {
			s.Unactioned++
			continue
		}
		switch rec.Action {
		case ActionOnSpreadsheet:
			s.OnSpreadsheet++
			s.ConfirmedTotal = s.ConfirmedTotal.Add(p.CommissionDue)
		case ActionMissingCommission:
			s.MissingCommission++
			if rec.Urgent {
				s.UrgentMissing++
			}
			s.MissingTotal = s.MissingTotal.Add(p.CommissionDue)
		case ActionRequestRemoval:
			s.RemovalRequests++
			s.RemovalTotal = s.RemovalTotal.Add(p.CommissionDue)
		}
	}
	return s
}

// =============================================================================
// OUTBOUND BATCHES
// =============================================================================

type BatchKind string

const (
	BatchMissingCommission BatchKind = "missing_commission"
	BatchRemovalRequests   BatchKind = "removal_requests"
	BatchComplete          BatchKind = "reconciliation_complete"
)

// BatchEntry is one policy line in an outbound batch.
type BatchEntry struct {
	PolicyID     string
	ClientName   string
	PolicyNumber string
	Carrier      string
	Amount       decimal.Decimal
	Urgent       bool
	Reason       string
}

// Batch is one grouped outbound message for the chat collaborator.
type Batch struct {
	Kind      BatchKind
	AgentID   string
	PeriodEnd calendar.Date
	Entries   []BatchEntry

	// Complete-batch rollup
	ConfirmedCount int
	ConfirmedTotal decimal.Decimal
}

// BuildBatches groups action records into outbound batches: one of missing
// commissions, one of removal requests, and - only when the operator opts in
// AND at least one policy was confirmed - a reconciliation-complete batch.
// Empty batches are omitted.
func BuildBatches(agentID string, policies []commission.Policy, actions map[string]Record, periodEnd calendar.Date, notifyComplete bool) []Batch {
	byID := make(map[string]commission.Policy, len(policies))
	for _, p := range policies {
		byID[p.ID] = p
	}

	missing := Batch{Kind: BatchMissingCommission, AgentID: agentID, PeriodEnd: periodEnd}
	removals := Batch{Kind: BatchRemovalRequests, AgentID: agentID, PeriodEnd: periodEnd}
	confirmedCount := 0
	confirmedTotal := decimal.Zero

	for _, p := range policies {
		rec, ok := actions[p.ID]
		if !ok {
			continue
		}
		entry := BatchEntry{
			PolicyID:     p.ID,
			ClientName:   p.ClientName,
			PolicyNumber: p.PolicyNumber,
			Carrier:      p.Carrier,
			Amount:       p.CommissionDue,
			Urgent:       rec.Urgent,
			Reason:       rec.Reason,
		}
		switch rec.Action {
		case ActionOnSpreadsheet:
			confirmedCount++
			confirmedTotal = confirmedTotal.Add(p.CommissionDue)
		case ActionMissingCommission:
			missing.Entries = append(missing.Entries, entry)
		case ActionRequestRemoval:
			removals.Entries = append(removals.Entries, entry)
		}
	}

	var batches []Batch
	if len(missing.Entries) > 0 {
		batches = append(batches, missing)
	}
	if len(removals.Entries) > 0 {
		batches = append(batches, removals)
	}
	if notifyComplete && confirmedCount > 0 {
		batches = append(batches, Batch{
			Kind:           BatchComplete,
			AgentID:        agentID,
			PeriodEnd:      periodEnd,
			ConfirmedCount: confirmedCount,
			ConfirmedTotal: confirmedTotal,
		})
	}
	return batches
}

// =============================================================================
// VERIFICATION WRITE-BACK
// =============================================================================

// WriteBackItem is one pending verification-timestamp write.
type WriteBackItem struct {
	PolicyID   string
	VerifiedAt time.Time
}

// VerificationWriteBack returns the policies that need a verification
// timestamp written: marked on_spreadsheet AND not already verified.
// Idempotent by construction - already-verified policies are untouched, so
// re-submitting the same period writes nothing new.
func VerificationWriteBack(policies []commission.Policy, actions map[string]Record, verifiedAt time.Time) []WriteBackItem {
	var items []WriteBackItem
	for _, p := range policies {
		rec, ok := actions[p.ID]
		if !ok || rec.Action != ActionOnSpreadsheet {
			continue
		}
		if p.IsVerified() {
			continue
		}
		items = append(items, WriteBackItem{PolicyID: p.ID, VerifiedAt: verifiedAt})
	}
	return items
}
