package core

import (
	"strings"
	"time"
)

// Date is a calendar day; the time-of-day component is always UTC midnight so
// values compare and group by day.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a point in time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM partition key the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Expense is one ledger entry. The ID is assigned by the owning month,
// sequentially from 1, and is never reused within that month. Amount,
// category and description are editable in place; validation of those edits
// (positivity, category existence) belongs to the caller, not the entity.
type Expense struct {
	ID          int
	Date        Date
	Amount      float64
	Category    string
	Description string
}

// SetAmount replaces the amount.
func (e *Expense) SetAmount(amount float64) {
	e.Amount = amount
}

// SetCategory points the expense at another category name.
func (e *Expense) SetCategory(name string) {
	e.Category = name
}

// SetDescription replaces the description, trimmed.
func (e *Expense) SetDescription(desc string) {
	e.Description = strings.TrimSpace(desc)
}
