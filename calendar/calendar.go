/*
Package calendar provides the date type and business-day arithmetic.

PURPOSE:
  Everything downstream (payroll periods, notification deadlines, chargeback
  windows) reasons about calendar dates at day granularity. This package owns
  that Date type plus the weekday-only arithmetic used to compute bank
  confirmation deadlines and overdue counts.

KEY CONCEPTS:
  - Date: a day-granularity, UTC-normalized point on the calendar
  - Business day: any weekday; Saturdays and Sundays are skipped entirely.
    There is NO holiday awareness - bank confirmation windows are quoted in
    plain business days.

BANK CONFIRMATION MODEL:
  A first premium payment is expected to be verifiable 2 business days after
  the first-payment date. BankConfirmationDue and BusinessDaysOverdue encode
  that window.

ALGORITHM NOTE:
  BusinessDaysBetween walks day by day. O(days) is fine here: the ranges are
  bounded (days to a few weeks, never years).

SEE ALSO:
  - payroll/: payment-date tables built on Date
  - notify/: uses overdue counts for priority escalation
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar point
// =============================================================================

// Date is a calendar day, normalized to midnight UTC.
type Date struct {
	t time.Time
}

// NewDate constructs a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string. Malformed input returns an
// InvalidDateError rather than a zero value the caller might compute with.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &InvalidDateError{Input: s, Cause: err}
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for compile-time-known literals (tests, seeds).
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsBusinessDay() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// DaysBetween returns the number of calendar days from a to b (negative when
// b precedes a).
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// =============================================================================
// BUSINESS-DAY ARITHMETIC
// =============================================================================

// AddBusinessDays advances d by n weekday-only steps. Each step lands on the
// next weekday, so for n >= 1 the result is never a Saturday or Sunday.
func AddBusinessDays(d Date, n int) Date {
	result := d
	for added := 0; added < n; {
		result = result.AddDays(1)
		if result.IsBusinessDay() {
			added++
		}
	}
	return result
}

// BusinessDaysBetween counts weekdays stepping from start (exclusive) to end
// (inclusive). Returns 0 when end is not after start.
func BusinessDaysBetween(start, end Date) int {
	if !end.After(start) {
		return 0
	}
	count := 0
	for d := start.AddDays(1); d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsBusinessDay() {
			count++
		}
	}
	return count
}

// BankConfirmationDue reports whether a first payment made on firstPayment
// should be verifiable by now: true iff now >= firstPayment + 2 business days.
func BankConfirmationDue(firstPayment, now Date) bool {
	return now.AfterOrEqual(AddBusinessDays(firstPayment, 2))
}

// BusinessDaysOverdue returns how many business days past the confirmation
// date now is, or 0 if confirmation is not yet due.
func BusinessDaysOverdue(firstPayment, now Date) int {
	due := AddBusinessDays(firstPayment, 2)
	if now.Before(due) {
		return 0
	}
	return BusinessDaysBetween(due, now)
}

// =============================================================================
// ERRORS
// =============================================================================

// InvalidDateError reports an unparseable date input.
type InvalidDateError struct {
	Input string
	Cause error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %v", e.Input, e.Cause)
}

func (e *InvalidDateError) Unwrap() error { return e.Cause }
