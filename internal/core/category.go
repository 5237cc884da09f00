package core

import "strconv"

// LimitType selects how a category's spending cap is expressed.
type LimitType string

const (
	// LimitPercent caps the category at a percentage of the monthly budget.
	LimitPercent LimitType = "percent"
	// LimitFixed caps the category at a fixed currency amount.
	LimitFixed LimitType = "fixed"
	// LimitUnlimited marks a category with no cap of its own, such as the
	// fallback bucket expenses are moved into when their category is deleted.
	// It consumes no allocation and classifies as info.
	LimitUnlimited LimitType = "unlimited"
)

// Category is a named spending limit within one month.
type Category struct {
	Name      string
	LimitType LimitType
	Value     float64
}

// Limit computes the cap in currency units for the given monthly budget.
// Fixed limits ignore the budget; unlimited categories report 0 so they never
// bind the allocation ceiling and route through the degenerate status branch.
func (c Category) Limit(budget float64) float64 {
	switch c.LimitType {
	case LimitPercent:
		return budget * (c.Value / 100.0)
	case LimitFixed:
		return c.Value
	default:
		return 0
	}
}

// DisplayLimit renders the configured limit for humans, e.g. "50%" or "1500 SAR".
func (c Category) DisplayLimit() string {
	switch c.LimitType {
	case LimitPercent:
		return strconv.FormatFloat(c.Value, 'g', -1, 64) + "%"
	case LimitFixed:
		return strconv.FormatFloat(c.Value, 'g', -1, 64) + " SAR"
	default:
		return "∞"
	}
}
