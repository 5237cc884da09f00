package core

// CategoryReport is one category's row in a month overview.
type CategoryReport struct {
	Name         string
	LimitType    LimitType
	LimitDisplay string
	Limit        float64
	Spent        float64
	Ratio        float64 // 0 when the limit is non-positive
	Status       Status
}

// Overview is the derived summary for one month, consumed by the HTTP layer
// and the report exporter.
type Overview struct {
	MonthKey     string
	IsSetup      bool
	Budget       float64
	TotalSpent   float64
	Remaining    float64
	Categories   []CategoryReport
	StatusCounts map[Status]int
	Top          *CategoryTotal
	Lowest       *CategoryTotal
	HighestDay   *DayTotal
}

// Overview derives the month's summary statistics in one pass. Categories
// appear in insertion order.
func (m *BudgetMonth) Overview() Overview {
	budget, _ := m.Budget()
	ov := Overview{
		MonthKey:     m.Key(),
		IsSetup:      m.IsSetup(),
		Budget:       budget,
		TotalSpent:   m.TotalExpenses(),
		StatusCounts: m.StatusSummaryCounts(),
	}
	ov.Remaining = ov.Budget - ov.TotalSpent

	totals := m.TotalByCategory()
	for _, c := range m.Categories() {
		limit := c.Limit(budget)
		spent := totals[c.Name]
		ratio := 0.0
		if limit > 0 {
			ratio = spent / limit
		}
		ov.Categories = append(ov.Categories, CategoryReport{
			Name:         c.Name,
			LimitType:    c.LimitType,
			LimitDisplay: c.DisplayLimit(),
			Limit:        limit,
			Spent:        spent,
			Ratio:        ratio,
			Status:       Classify(spent, limit),
		})
	}

	if top, lowest, ok := m.TopAndLowestCategory(); ok {
		ov.Top = &top
		ov.Lowest = &lowest
	}
	if day, ok := m.HighestSpendingDay(); ok {
		ov.HighestDay = &day
	}
	return ov
}
