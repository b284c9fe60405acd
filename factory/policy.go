/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON book-of-business exports into commission.Policy values.
  Agents migrating from spreadsheet trackers arrive with their existing
  book as a JSON export; the factory validates each record, applies
  defaults, and recomputes derived amounts so imported rows obey the same
  invariants as rows created through the API.

JSON SCHEMA:
  [
    {
      "client_name": "Ana Reyes",
      "carrier": "Acme Life",
      "policy_number": "AL-100",
      "product": "Term 20",
      "status": "pending",
      "annual_premium": "1200.00",
      "commission_rate": "0.05",
      "first_payment_date": "2025-08-04",
      "comments": "from spreadsheet row 12"
    }
  ]

KEY FEATURES:
  - Validates every record and reports ALL problems, not just the first
  - Defaults status to pending
  - Recomputes commission due; exported amounts are never trusted
  - Currency fields are decimal strings, never floats

USAGE:
  policies, err := factory.ParseBook(data, agentID)
  for _, p := range policies {
      store.CreatePolicy(ctx, p)
  }

SEE ALSO:
  - commission/types.go: Policy type and the rounding invariant
  - cmd/server/main.go: the -import flag
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of one exported policy.
type PolicyJSON struct {
	ClientName       string `json:"client_name"`
	Carrier          string `json:"carrier"`
	PolicyNumber     string `json:"policy_number"`
	Product          string `json:"product"`
	Status           string `json:"status,omitempty"`
	AnnualPremium    string `json:"annual_premium"`
	CommissionRate   string `json:"commission_rate"`
	FirstPaymentDate string `json:"first_payment_date,omitempty"`
	InforceDate      string `json:"inforce_date,omitempty"`
	CancelledDate    string `json:"cancelled_date,omitempty"`
	Comments         string `json:"comments,omitempty"`
}

// =============================================================================
// BOOK IMPORT
// =============================================================================

// ParseBook parses a JSON book-of-business export into policies owned by
// agentID. Either every record is valid or the whole book is rejected with
// a ValidationError listing each problem.
func ParseBook(data []byte, agentID string) ([]commission.Policy, error) {
	var records []PolicyJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("factory: parse book: %w", err)
	}

	policies := make([]commission.Policy, 0, len(records))
	var problems []string
	for i, r := range records {
		p, errs := fromJSON(r, agentID)
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("record %d (%s): %s", i+1, r.ClientName, e))
		}
		policies = append(policies, p)
	}
	if len(problems) > 0 {
		return nil, &commission.ValidationError{Problems: problems}
	}
	return policies, nil
}

// fromJSON converts one record, collecting every problem instead of
// stopping at the first.
func fromJSON(r PolicyJSON, agentID string) (commission.Policy, []string) {
	var problems []string

	status := commission.Status(r.Status)
	if r.Status == "" {
		status = commission.StatusPending
	}
	if !commission.ValidStatus(status) {
		problems = append(problems, fmt.Sprintf("unknown status %q", r.Status))
	}
	if r.ClientName == "" {
		problems = append(problems, "client_name is required")
	}

	premium, err := decimal.NewFromString(r.AnnualPremium)
	if err != nil {
		problems = append(problems, "annual_premium is not a valid decimal")
	}
	rate, err := decimal.NewFromString(r.CommissionRate)
	if err != nil {
		problems = append(problems, "commission_rate is not a valid decimal")
	} else if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, "commission_rate must be between 0 and 1")
	}

	p := commission.Policy{
		AgentID:        agentID,
		ClientName:     r.ClientName,
		Carrier:        r.Carrier,
		PolicyNumber:   r.PolicyNumber,
		Product:        r.Product,
		Status:         status,
		AnnualPremium:  premium,
		CommissionRate: rate,
		Comments:       r.Comments,
	}

	p.FirstPaymentDate = parseDate(r.FirstPaymentDate, "first_payment_date", &problems)
	p.InforceDate = parseDate(r.InforceDate, "inforce_date", &problems)
	p.CancelledDate = parseDate(r.CancelledDate, "cancelled_date", &problems)

	if status == commission.StatusCancelled && p.CancelledDate == nil {
		problems = append(problems, "cancelled policy is missing cancelled_date")
	}

	return p, problems
}

func parseDate(s, field string, problems *[]string) *calendar.Date {
	if s == "" {
		return nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s is not a valid date: %s", field, s))
		return nil
	}
	return &d
}
