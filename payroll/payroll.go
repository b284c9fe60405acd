/*
Package payroll provides the payment-date calendar and period aggregation.

PURPOSE:
  Commission payouts land on fixed dates decided operationally upstream
  (payroll runs, bank cutoffs). Those dates are DATA, not an algorithm: the
  calendar is a versioned, year-keyed table loaded from YAML at startup, with
  the current year embedded as a default. Each payment date carries its own
  period-end cutoff.

PERIOD MODEL:
  A payroll period is the span between consecutive period-end cutoffs. The
  entry whose period-end is the first one >= a date owns that date; the
  implicit period start is the prior entry's period-end (the first period of
  a year starts Jan 1). Period membership uses an inclusive upper bound - a
  policy created exactly on the cutoff day makes that payout.

RANGE DISCIPLINE:
  Lookups outside the tabulated years fail with UnknownPeriod. The calendar
  never silently reuses the nearest year.

SEE ALSO:
  - data/payroll_2025.yaml: the embedded default table
  - reconcile/: groups reconciliation work by these periods
*/
package payroll

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

//go:embed data/payroll_2025.yaml
var defaultTable []byte

// =============================================================================
// TYPES
// =============================================================================

// PaymentDate is one payout entry in the payroll calendar.
type PaymentDate struct {
	Date        calendar.Date
	DayOfWeek   string
	PaymentType string
	PeriodEnd   calendar.Date
}

// Period is the [Start, End] span of commission cutoffs covered by a payout.
type Period struct {
	Start   calendar.Date
	End     calendar.Date
	Payment PaymentDate
}

// Contains reports whether d falls inside the period, both bounds inclusive.
func (p Period) Contains(d calendar.Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Calendar is the immutable, year-keyed payment-date table.
type Calendar struct {
	version string
	years   map[int][]PaymentDate // entries sorted by date
}

// =============================================================================
// LOADING
// =============================================================================

type tableFile struct {
	Version string                `yaml:"version"`
	Years   map[int][]entryRecord `yaml:"years"`
}

type entryRecord struct {
	Date        string `yaml:"date"`
	DayOfWeek   string `yaml:"day_of_week"`
	PaymentType string `yaml:"payment_type"`
	PeriodEnd   string `yaml:"period_end"`
}

// Default returns the calendar built from the embedded table.
func Default() *Calendar {
	cal, err := Parse(defaultTable)
	if err != nil {
		// The embedded table is validated by tests; reaching here means a
		// broken build, not a runtime condition.
		panic(fmt.Sprintf("payroll: embedded table invalid: %v", err))
	}
	return cal
}

// Parse builds a calendar from YAML table bytes.
func Parse(data []byte) (*Calendar, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("payroll: parse table: %w", err)
	}
	cal := &Calendar{version: file.Version, years: make(map[int][]PaymentDate)}
	for year, records := range file.Years {
		entries := make([]PaymentDate, 0, len(records))
		for _, r := range records {
			date, err := calendar.ParseDate(r.Date)
			if err != nil {
				return nil, fmt.Errorf("payroll: year %d: %w", year, err)
			}
			end, err := calendar.ParseDate(r.PeriodEnd)
			if err != nil {
				return nil, fmt.Errorf("payroll: year %d: %w", year, err)
			}
			entries = append(entries, PaymentDate{
				Date:        date,
				DayOfWeek:   r.DayOfWeek,
				PaymentType: r.PaymentType,
				PeriodEnd:   end,
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
		cal.years[year] = entries
	}
	return cal, nil
}

// Merge layers another table over this one; years present in other replace
// the same years here. Used to add future years from config files.
func (c *Calendar) Merge(other *Calendar) {
	for year, entries := range other.years {
		c.years[year] = entries
	}
	if other.version != "" {
		c.version = other.version
	}
}

// Version returns the table version string.
func (c *Calendar) Version() string { return c.version }

// Years returns the tabulated calendar years, ascending.
func (c *Calendar) Years() []int {
	years := make([]int, 0, len(c.years))
	for y := range c.years {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func (c *Calendar) entriesFor(d calendar.Date) ([]PaymentDate, error) {
	entries, ok := c.years[d.Year()]
	if !ok {
		return nil, &commission.UnknownPeriodError{Date: d, Years: c.Years()}
	}
	return entries, nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// NextPaymentDate returns the first payment date on or after from.
func (c *Calendar) NextPaymentDate(from calendar.Date) (PaymentDate, error) {
	entries, err := c.entriesFor(from)
	if err != nil {
		return PaymentDate{}, err
	}
	for _, e := range entries {
		if e.Date.AfterOrEqual(from) {
			return e, nil
		}
	}
	// Past the last payout of the year: the next one lives in a year we may
	// not have tabulated yet.
	if next, ok := c.years[from.Year()+1]; ok && len(next) > 0 {
		return next[0], nil
	}
	return PaymentDate{}, &commission.UnknownPeriodError{Date: from, Years: c.Years()}
}

// PreviousPaymentDate returns the last payment date strictly before from.
func (c *Calendar) PreviousPaymentDate(from calendar.Date) (PaymentDate, error) {
	entries, err := c.entriesFor(from)
	if err != nil {
		return PaymentDate{}, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Date.Before(from) {
			return entries[i], nil
		}
	}
	if prev, ok := c.years[from.Year()-1]; ok && len(prev) > 0 {
		return prev[len(prev)-1], nil
	}
	return PaymentDate{}, &commission.UnknownPeriodError{Date: from, Years: c.Years()}
}

// PeriodForDate returns the period containing d: the entry whose period-end
// is the first one >= d, with the prior entry's period-end establishing the
// implicit start (Jan 1 for the first period of the year).
func (c *Calendar) PeriodForDate(d calendar.Date) (Period, error) {
	entries, err := c.entriesFor(d)
	if err != nil {
		return Period{}, err
	}
	for i, e := range entries {
		if e.PeriodEnd.AfterOrEqual(d) {
			start := calendar.NewDate(d.Year(), 1, 1)
			if i > 0 {
				start = entries[i-1].PeriodEnd
			}
			return Period{Start: start, End: e.PeriodEnd, Payment: e}, nil
		}
	}
	return Period{}, &commission.UnknownPeriodError{Date: d, Years: c.Years()}
}

// PeriodEndingOn returns the period whose period-end is exactly end.
func (c *Calendar) PeriodEndingOn(end calendar.Date) (Period, error) {
	entries, err := c.entriesFor(end)
	if err != nil {
		return Period{}, err
	}
	for i, e := range entries {
		if e.PeriodEnd.Equal(end) {
			start := calendar.NewDate(end.Year(), 1, 1)
			if i > 0 {
				start = entries[i-1].PeriodEnd
			}
			return Period{Start: start, End: e.PeriodEnd, Payment: e}, nil
		}
	}
	return Period{}, &commission.UnknownPeriodError{Date: end, Years: c.Years()}
}

// UpcomingPaymentPeriods returns the first count payment entries on or after
// from. Returns fewer when the table runs out.
func (c *Calendar) UpcomingPaymentPeriods(from calendar.Date, count int) ([]PaymentDate, error) {
	entries, err := c.entriesFor(from)
	if err != nil {
		return nil, err
	}
	upcoming := make([]PaymentDate, 0, count)
	for _, e := range entries {
		if len(upcoming) == count {
			break
		}
		if e.Date.AfterOrEqual(from) {
			upcoming = append(upcoming, e)
		}
	}
	if next, ok := c.years[from.Year()+1]; ok {
		for _, e := range next {
			if len(upcoming) == count {
				break
			}
			upcoming = append(upcoming, e)
		}
	}
	return upcoming, nil
}

// =============================================================================
// EXPECTED COMMISSION - "what's still pending for this payout"
// =============================================================================

// ExpectedCommission summarizes the unpaid policies attributable to one
// payroll period.
type ExpectedCommission struct {
	Period   Period
	Total    decimal.Decimal
	Count    int
	Policies []commission.Policy
}

// ExpectedCommissionForPeriod partitions policies into the period ending on
// periodEnd (membership by created-at, inclusive bounds) and sums commission
// still owed. A policy drops out once commission is PAID, not once the
// period closes - this models still-pending commission regardless of
// calendar boundaries.
func (c *Calendar) ExpectedCommissionForPeriod(policies []commission.Policy, periodEnd calendar.Date) (ExpectedCommission, error) {
	period, err := c.PeriodEndingOn(periodEnd)
	if err != nil {
		return ExpectedCommission{}, err
	}

	result := ExpectedCommission{Period: period, Total: decimal.Zero}
	for _, p := range policies {
		if p.IsPaid() {
			continue
		}
		if !period.Contains(p.CreatedDate()) {
			continue
		}
		result.Policies = append(result.Policies, p)
		result.Total = result.Total.Add(p.CommissionDue)
		result.Count++
	}
	return result, nil
}
