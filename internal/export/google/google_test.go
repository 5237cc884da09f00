package google

import (
	"context"
	"testing"

	"budgetbook/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "  ", "Reports"); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
}

func TestWriteMonthReport_NoService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Reports"}
	if _, err := c.WriteMonthReport(context.Background(), core.Overview{MonthKey: "2024-03"}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestReportRows(t *testing.T) {
	ov := core.Overview{
		MonthKey:   "2024-03",
		Budget:     1000,
		TotalSpent: 400,
		Categories: []core.CategoryReport{
			{Name: "Food", LimitDisplay: "400 SAR", Limit: 400, Spent: 300, Ratio: 0.75, Status: core.StatusAlert},
			{Name: "Fun", LimitDisplay: "20%", Limit: 200, Spent: 100, Ratio: 0.5, Status: core.StatusAlert},
		},
	}

	rows := reportRows(ov)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 2 categories + total", len(rows))
	}
	if rows[0][1] != "Food" || rows[1][1] != "Fun" {
		t.Errorf("category order wrong: %v", rows)
	}
	total := rows[2]
	if total[1] != "total" || total[3] != 1000.0 || total[4] != 400.0 {
		t.Errorf("total row = %v", total)
	}
	if total[5] != 0.4 {
		t.Errorf("total ratio = %v, want 0.4", total[5])
	}
}

func TestRatioDegenerateBudget(t *testing.T) {
	if got := ratio(100, 0); got != 0 {
		t.Errorf("ratio(100, 0) = %v, want 0", got)
	}
}
