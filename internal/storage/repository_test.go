package storage

import (
	"context"
	"path/filepath"
	"testing"

	"budgetbook/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndLoadMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := core.NewBudgetMonth("2024-03")
	m.SetBudget(2000)
	m.AddCategory(core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 600})
	m.AddCategory(core.Category{Name: "Fun", LimitType: core.LimitPercent, Value: 20})
	m.AddExpense(core.NewDate(2024, 3, 5), 120, "Food", "groceries")
	m.AddExpense(core.NewDate(2024, 3, 6), 40, "Fun", "")

	if err := repo.SaveMonth(ctx, m.Snapshot()); err != nil {
		t.Fatalf("SaveMonth: %v", err)
	}

	snap, err := repo.LoadMonth(ctx, "2024-03")
	if err != nil {
		t.Fatalf("LoadMonth: %v", err)
	}

	got := core.RestoreMonth(snap)
	if budget, ok := got.Budget(); !ok || budget != 2000 {
		t.Errorf("Budget = %v, %v; want 2000, true", budget, ok)
	}
	cats := got.Categories()
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Fun" {
		t.Errorf("Categories out of order: %+v", cats)
	}
	if total := got.TotalExpenses(); total != 160 {
		t.Errorf("TotalExpenses = %v, want 160", total)
	}

	// restored counter must not reuse IDs
	e := got.AddExpense(core.NewDate(2024, 3, 7), 10, "Food", "")
	if e.ID != 3 {
		t.Errorf("next expense ID = %d, want 3", e.ID)
	}
}

func TestSaveMonthReplacesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := core.NewBudgetMonth("2024-03")
	m.SetBudget(1000)
	m.AddCategory(core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 400})
	m.AddExpense(core.NewDate(2024, 3, 5), 50, "Food", "")
	if err := repo.SaveMonth(ctx, m.Snapshot()); err != nil {
		t.Fatalf("SaveMonth: %v", err)
	}

	// mutate and save again; the stored copy must match the latest snapshot
	m.DeleteExpenseByID(1)
	m.SetBudget(1500)
	if err := repo.SaveMonth(ctx, m.Snapshot()); err != nil {
		t.Fatalf("SaveMonth (second): %v", err)
	}

	snap, err := repo.LoadMonth(ctx, "2024-03")
	if err != nil {
		t.Fatalf("LoadMonth: %v", err)
	}
	if len(snap.Expenses) != 0 {
		t.Errorf("expenses after replace = %d, want 0", len(snap.Expenses))
	}
	if snap.Budget == nil || *snap.Budget != 1500 {
		t.Errorf("budget after replace = %v, want 1500", snap.Budget)
	}
}

func TestLoadAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, key := range []string{"2024-05", "2024-03", "2024-04"} {
		m := core.NewBudgetMonth(key)
		m.SetBudget(1000)
		if err := repo.SaveMonth(ctx, m.Snapshot()); err != nil {
			t.Fatalf("SaveMonth %s: %v", key, err)
		}
	}

	snaps, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("LoadAll returned %d months, want 3", len(snaps))
	}
	for i, want := range []string{"2024-03", "2024-04", "2024-05"} {
		if snaps[i].Key != want {
			t.Errorf("snaps[%d].Key = %q, want %q", i, snaps[i].Key, want)
		}
	}
}
