package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Registry maps YYYY-MM month keys to their BudgetMonth, creating months
// lazily on first access. Entries live for the process lifetime; durable
// persistence is the storage layer's concern.
type Registry struct {
	months map[string]*BudgetMonth
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{months: make(map[string]*BudgetMonth)}
}

// GetOrCreate returns the month for the key, creating and storing an empty
// one on first reference. Idempotent: repeated calls return the same instance.
func (r *Registry) GetOrCreate(key string) *BudgetMonth {
	if m, ok := r.months[key]; ok {
		return m
	}
	m := NewBudgetMonth(key)
	r.months[key] = m
	return m
}

// Month returns the month for the key without creating it, or nil when the
// key is unknown.
func (r *Registry) Month(key string) *BudgetMonth {
	return r.months[key]
}

// Put stores a restored month, replacing any existing entry for its key.
func (r *Registry) Put(m *BudgetMonth) {
	r.months[m.Key()] = m
}

// Keys returns all known month keys, sorted ascending. Month keys are
// string-sortable by construction.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.months))
	for k := range r.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MonthKey formats a point in time as its YYYY-MM partition key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonthKey validates a YYYY-MM key and returns the first instant of that
// month.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month key %q: %w", key, err)
	}
	return t, nil
}

// DefaultCategories returns the stock percent allocation offered during month
// setup: half the budget for day-to-day expenses, the rest split evenly.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Expenses", LimitType: LimitPercent, Value: 50},
		{Name: "Entertainment", LimitType: LimitPercent, Value: 10},
		{Name: "Charity", LimitType: LimitPercent, Value: 10},
		{Name: "Savings", LimitType: LimitPercent, Value: 10},
		{Name: "Investment", LimitType: LimitPercent, Value: 10},
		{Name: "Education", LimitType: LimitPercent, Value: 10},
	}
}
