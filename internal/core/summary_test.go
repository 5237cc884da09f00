package core

import "testing"

func TestOverview(t *testing.T) {
	m := NewBudgetMonth("2024-03")
	ov := m.Overview()
	if ov.IsSetup || ov.Budget != 0 || ov.Top != nil || ov.HighestDay != nil {
		t.Errorf("empty month overview = %+v", ov)
	}

	m.SetBudget(1000)
	m.AddCategory(Category{Name: "Food", LimitType: LimitFixed, Value: 500})
	m.AddCategory(Category{Name: "Fun", LimitType: LimitPercent, Value: 20})
	m.AddExpense(NewDate(2024, 3, 5), 300, "Food", "")
	m.AddExpense(NewDate(2024, 3, 6), 170, "Fun", "")

	ov = m.Overview()
	if !ov.IsSetup {
		t.Fatal("overview not set up")
	}
	if ov.TotalSpent != 470 || ov.Remaining != 530 {
		t.Errorf("spent/remaining = %v/%v", ov.TotalSpent, ov.Remaining)
	}
	if len(ov.Categories) != 2 || ov.Categories[0].Name != "Food" {
		t.Fatalf("categories = %v", ov.Categories)
	}
	food := ov.Categories[0]
	if food.Limit != 500 || food.Spent != 300 || food.Ratio != 0.6 || food.Status != StatusAlert {
		t.Errorf("food report = %+v", food)
	}
	// 170 of 200 is a 0.85 ratio, inside the warning band
	fun := ov.Categories[1]
	if fun.Limit != 200 || fun.Ratio != 0.85 || fun.Status != StatusWarning {
		t.Errorf("fun report = %+v", fun)
	}
	if ov.Top == nil || ov.Top.Name != "Food" {
		t.Errorf("top = %v", ov.Top)
	}
	if ov.Lowest == nil || ov.Lowest.Name != "Fun" {
		t.Errorf("lowest = %v", ov.Lowest)
	}
	if ov.HighestDay == nil || ov.HighestDay.Total != 300 {
		t.Errorf("highest day = %v", ov.HighestDay)
	}
}

func TestOverviewDegenerateRatio(t *testing.T) {
	m := NewBudgetMonth("2024-03")
	m.SetBudget(1000)
	m.AddCategory(Category{Name: OtherCategory, LimitType: LimitUnlimited})
	m.AddExpense(NewDate(2024, 3, 1), 100, OtherCategory, "")

	ov := m.Overview()
	other := ov.Categories[0]
	if other.Ratio != 0 {
		t.Errorf("unbounded ratio = %v, want 0", other.Ratio)
	}
	if other.Status != StatusInfo {
		t.Errorf("unbounded status = %v, want info", other.Status)
	}
}
