package core

// Status buckets a category's spend ratio for display and summary counts.
type Status string

const (
	StatusInfo    Status = "info"
	StatusSafe    Status = "safe"
	StatusAlert   Status = "alert"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

// Statuses returns all buckets in severity order.
func Statuses() []Status {
	return []Status{StatusInfo, StatusSafe, StatusAlert, StatusWarning, StatusDanger}
}

// Classify buckets spent/limit. A non-positive limit means the category is
// degenerate or unbounded and classifies as info rather than dividing by zero.
// Bucket lower bounds are inclusive: exactly 0.50 is alert, 0.80 is warning,
// 1.00 is danger.
func Classify(spent, limit float64) Status {
	if limit <= 0 {
		return StatusInfo
	}
	ratio := spent / limit
	switch {
	case ratio < 0.50:
		return StatusSafe
	case ratio < 0.80:
		return StatusAlert
	case ratio < 1.00:
		return StatusWarning
	default:
		return StatusDanger
	}
}
