// Package export defines the outbound port for month report exporters.
package export

import (
	"context"

	"budgetbook/internal/core"
)

// ReportWriter writes a month overview to an external destination and returns
// an opaque reference to where it landed.
type ReportWriter interface {
	WriteMonthReport(ctx context.Context, ov core.Overview) (ref string, err error)
}
