/*
Package commission provides the core domain model for commission tracking.

PURPOSE:
  Defines the records the rest of the system computes over - insurance
  policies, agent profiles, contact attempts - together with the money
  invariant that makes the whole dashboard trustworthy:

      commission_due == round(premium * rate, 2)

  Historical data violated this invariant (float math at write time); the fix
  is to compute it in decimal arithmetic on EVERY write path, never to repair
  it after the fact. NewCommissionDue is the single place that rounding
  happens.

KEY CONCEPTS IN THIS FILE (types.go):
  - Policy: one insurance contract tracked for commission purposes
  - Status: Pending | Active | Cancelled lifecycle
  - AgentProfile: 1:1 with an external identity, with a normalization
    adapter for legacy specialization encodings
  - ContactAttempt: one "called the client" log entry, 30-day retention

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all currency, never float64
  2. Agent scoping: every record carries its owning agent id; stores must
     filter by it on every query
  3. Legacy tolerance: optional dates and mixed specialization encodings are
     normalized at the boundary, not in display code

SEE ALSO:
  - cancellation.go: shared cancellation-date lookup strategy
  - chargeback.go: early-cancellation clawback detection
  - errors.go: error taxonomy
*/
package commission

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
)

// =============================================================================
// POLICY - One insurance contract
// =============================================================================

// Status is the policy lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a recognized lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled:
		return true
	}
	return false
}

// Policy is one insurance contract record tracked for commission purposes.
type Policy struct {
	ID           string
	AgentID      string // owning agent; all store access is scoped by this
	ClientName   string
	Carrier      string
	PolicyNumber string
	Product      string
	Status       Status

	// AnnualPremium is the commissionable annual premium.
	AnnualPremium decimal.Decimal
	// CommissionRate is a fraction in [0, 1].
	CommissionRate decimal.Decimal
	// CommissionDue is always round(AnnualPremium * CommissionRate, 2).
	// Recomputed on every write; see NewCommissionDue.
	CommissionDue decimal.Decimal

	FirstPaymentDate *calendar.Date
	InforceDate      *calendar.Date
	// CancelledDate may be absent on rows written before the column existed.
	// Use CancellationOf for age calculations, never this field directly.
	CancelledDate *calendar.Date

	DateVerified       *time.Time
	DateCommissionPaid *time.Time

	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCommissionDue computes the commission owed for a premium and rate,
// rounded to cents. This is the only sanctioned way to derive CommissionDue.
func NewCommissionDue(premium, rate decimal.Decimal) decimal.Decimal {
	return premium.Mul(rate).Round(2)
}

// CreatedDate returns the policy's creation timestamp as a calendar day.
func (p Policy) CreatedDate() calendar.Date {
	return calendar.DateOf(p.CreatedAt)
}

// IsPaid reports whether commission has been recorded as paid out.
func (p Policy) IsPaid() bool { return p.DateCommissionPaid != nil }

// IsVerified reports whether the first payment has been bank-confirmed.
func (p Policy) IsVerified() bool { return p.DateVerified != nil }

// =============================================================================
// AGENT PROFILE
// =============================================================================

// AgentProfile carries per-agent metadata, exactly one row per agent id.
type AgentProfile struct {
	ID              string
	AgentID         string
	StartDate       *calendar.Date
	LicenseNumber   string
	Specializations []string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BlankProfile returns the empty-but-valid profile shown to an agent who has
// no profile row yet. Callers render this instead of a not-found error.
func BlankProfile(agentID string) AgentProfile {
	return AgentProfile{AgentID: agentID, Specializations: []string{}}
}

// ParseSpecializations normalizes the three historical encodings of the
// specializations column into a clean list:
//   - a JSON array:            ["life","annuity"]
//   - a JSON-encoded string:   "\"life, annuity\""
//   - a raw comma-separated:   life, annuity
//
// This is the single adapter at the storage boundary; nothing else in the
// system should touch the raw encoding.
func ParseSpecializations(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return trimAll(list)
	}

	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		raw = single
	}
	return trimAll(strings.Split(raw, ","))
}

// EncodeSpecializations serializes a list for storage as a JSON array, the
// canonical encoding going forward.
func EncodeSpecializations(list []string) string {
	data, err := json.Marshal(trimAll(list))
	if err != nil {
		return "[]"
	}
	return string(data)
}

func trimAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// CONTACT ATTEMPT - "called the client" log
// =============================================================================

// ContactAttempt records one client outreach for a policy. Kept in the shared
// store (keyed by policy, agent, and day) so teammates and other devices see
// the same contact history. Retention is 30 days.
type ContactAttempt struct {
	PolicyID  string
	AgentID   string
	Date      calendar.Date
	CreatedAt time.Time
}

// ContactRetentionDays is how long contact attempts are kept before the
// maintenance trim removes them.
const ContactRetentionDays = 30
