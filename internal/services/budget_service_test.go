package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
)

type fakeStore struct {
	saved []core.MonthSnapshot
	seed  []core.MonthSnapshot
	err   error
}

func (f *fakeStore) SaveMonth(_ context.Context, snap core.MonthSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeStore) LoadAll(context.Context) ([]core.MonthSnapshot, error) {
	return f.seed, f.err
}

type fakePublisher struct {
	events []*amqp.MonthEventMessage
}

func (f *fakePublisher) PublishMonthEvent(_ context.Context, msg *amqp.MonthEventMessage) error {
	f.events = append(f.events, msg)
	return nil
}

func newTestService(t *testing.T) (*BudgetService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewBudgetService(core.NewRegistry(), store, pub)
	return svc, store, pub
}

func setupMarch(t *testing.T, svc *BudgetService) {
	t.Helper()
	if err := svc.SetupMonth(context.Background(), "2024-03", 1000, false); err != nil {
		t.Fatalf("SetupMonth: %v", err)
	}
	if err := svc.AddCategory(context.Background(), "2024-03", core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 400}); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
}

func TestSetupMonth(t *testing.T) {
	svc, store, pub := newTestService(t)

	if err := svc.SetupMonth(context.Background(), "2024-03", 1000, true); err != nil {
		t.Fatalf("SetupMonth: %v", err)
	}

	ov, err := svc.Overview("2024-03")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.IsSetup {
		t.Error("month should be set up with defaults installed")
	}
	if len(ov.Categories) != len(core.DefaultCategories()) {
		t.Errorf("categories = %d, want %d", len(ov.Categories), len(core.DefaultCategories()))
	}
	if len(store.saved) != 1 {
		t.Errorf("store saves = %d, want 1", len(store.saved))
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.KindBudgetChanged {
		t.Errorf("events = %+v, want one budget_changed", pub.events)
	}
}

func TestSetupMonthRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetupMonth(ctx, "March 2024", 1000, false); err == nil {
		t.Error("malformed month key accepted")
	}
	if err := svc.SetupMonth(ctx, "2024-03", 0, false); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero budget: got %v, want ErrInvalidAmount", err)
	}
	if err := svc.SetupMonth(ctx, "2024-03", -5, false); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative budget: got %v, want ErrInvalidAmount", err)
	}
}

func TestAddCategoryAllocationCeiling(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc) // budget 1000, Food fixed 400

	if err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Fun", LimitType: core.LimitPercent, Value: 20}); err != nil {
		t.Fatalf("Fun 20%%: %v", err)
	}

	// 400 remains; a 500 SAR category must be refused with the headroom quoted
	err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Travel", LimitType: core.LimitFixed, Value: 500})
	if !errors.Is(err, core.ErrAllocationExceeded) {
		t.Fatalf("got %v, want ErrAllocationExceeded", err)
	}
	if !strings.Contains(err.Error(), "Max available: 400 SAR") {
		t.Errorf("message %q should quote 400 SAR", err.Error())
	}

	// percent request quotes the headroom as a percentage
	err = svc.AddCategory(ctx, "2024-03", core.Category{Name: "Travel", LimitType: core.LimitPercent, Value: 50})
	if !errors.Is(err, core.ErrAllocationExceeded) {
		t.Fatalf("got %v, want ErrAllocationExceeded", err)
	}
	if !strings.Contains(err.Error(), "Max available: 40%") {
		t.Errorf("message %q should quote 40%%", err.Error())
	}

	// exactly the remaining share is allowed
	if err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Travel", LimitType: core.LimitFixed, Value: 400}); err != nil {
		t.Fatalf("exact fit rejected: %v", err)
	}
}

func TestAddCategoryValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	if err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "  ", LimitType: core.LimitFixed, Value: 10}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name: got %v, want ErrEmptyName", err)
	}
	if err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 10}); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("duplicate: got %v, want ErrDuplicateCategory", err)
	}
	if err := svc.AddCategory(ctx, "2024-09", core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 10}); !errors.Is(err, core.ErrMonthNotSetUp) {
		t.Errorf("unknown month: got %v, want ErrMonthNotSetUp", err)
	}
}

func TestCategoryValueMustBePositive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	for _, value := range []float64{0, -10} {
		err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Travel", LimitType: core.LimitFixed, Value: value})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("add with value %v: got %v, want ErrInvalidAmount", value, err)
		}
		if err := svc.UpdateCategoryLimit(ctx, "2024-03", "Food", core.LimitFixed, value); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("update with value %v: got %v, want ErrInvalidAmount", value, err)
		}
	}

	// a negative fixed limit must never be accepted to inflate the headroom
	remaining, _, err := svc.AllocationSummary("2024-03")
	if err != nil {
		t.Fatalf("AllocationSummary: %v", err)
	}
	if remaining != 600 {
		t.Errorf("remaining = %v after rejected values, want 600", remaining)
	}
}

func TestUpdateCategoryLimitUsesFreedHeadroom(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc) // budget 1000, Food fixed 400

	if err := svc.AddCategory(ctx, "2024-03", core.Category{Name: "Fun", LimitType: core.LimitFixed, Value: 600}); err != nil {
		t.Fatalf("Fun: %v", err)
	}

	// raising Food beyond its own freed share must fail
	err := svc.UpdateCategoryLimit(ctx, "2024-03", "Food", core.LimitFixed, 450)
	if !errors.Is(err, core.ErrAllocationExceeded) {
		t.Fatalf("got %v, want ErrAllocationExceeded", err)
	}

	// swapping Food's own 400 for 40% of 1000 is a no-op in amount terms
	if err := svc.UpdateCategoryLimit(ctx, "2024-03", "Food", core.LimitPercent, 40); err != nil {
		t.Fatalf("equivalent limit rejected: %v", err)
	}
}

func TestAddExpense(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)
	store.saved = nil
	pub.events = nil

	e, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 120, "Food", " groceries ")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if e.ID != 1 {
		t.Errorf("ID = %d, want 1", e.ID)
	}
	if e.Description != "groceries" {
		t.Errorf("Description = %q, want trimmed", e.Description)
	}
	if len(store.saved) != 1 || len(pub.events) != 1 {
		t.Errorf("saves = %d, events = %d; want 1 each", len(store.saved), len(pub.events))
	}
	if pub.events[0].Kind != amqp.KindExpenseAdded || pub.events[0].ExpenseID != 1 {
		t.Errorf("event = %+v", pub.events[0])
	}
}

func TestAddExpenseResolvesMonthFromDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	// April is not set up, so an April-dated expense fails even though the
	// caller was just working in March
	_, err := svc.AddExpense(ctx, core.NewDate(2024, 4, 1), 10, "Food", "")
	if !errors.Is(err, core.ErrMonthNotSetUp) {
		t.Errorf("got %v, want ErrMonthNotSetUp", err)
	}

	if err := svc.SetupMonth(ctx, "2024-04", 500, true); err != nil {
		t.Fatalf("SetupMonth April: %v", err)
	}
	e, err := svc.AddExpense(ctx, core.NewDate(2024, 4, 1), 10, "Expenses", "")
	if err != nil {
		t.Fatalf("AddExpense April: %v", err)
	}
	if got := e.Date.MonthKey(); got != "2024-04" {
		t.Errorf("expense landed in %s", got)
	}
}

func TestAddExpenseSpendCeiling(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc) // budget 1000

	if _, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 900, "Food", ""); err != nil {
		t.Fatalf("first expense: %v", err)
	}

	_, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 6), 150, "Food", "")
	if !errors.Is(err, core.ErrBudgetExceeded) {
		t.Fatalf("got %v, want ErrBudgetExceeded", err)
	}
	if !strings.Contains(err.Error(), "You only have 100 SAR left") {
		t.Errorf("message %q should quote 100 SAR", err.Error())
	}

	// filling the budget exactly is fine
	if _, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 6), 100, "Food", ""); err != nil {
		t.Fatalf("exact fill rejected: %v", err)
	}
}

func TestEditExpense(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	e, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 900, "Food", "rent")
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	// raising by more than the 100 left must fail
	if _, err := svc.EditExpense(ctx, "2024-03", e.ID, 1050, "Food", "rent"); !errors.Is(err, core.ErrBudgetExceeded) {
		t.Errorf("got %v, want ErrBudgetExceeded", err)
	}

	// lowering always works
	updated, err := svc.EditExpense(ctx, "2024-03", e.ID, 800, "Food", "rent march")
	if err != nil {
		t.Fatalf("EditExpense: %v", err)
	}
	if updated.Amount != 800 || updated.Description != "rent march" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.EditExpense(ctx, "2024-03", 99, 10, "Food", ""); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("missing ID: got %v, want ErrExpenseNotFound", err)
	}
}

func TestDeleteExpense(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	e, _ := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 50, "Food", "")
	pub.events = nil

	if err := svc.DeleteExpense(ctx, "2024-03", e.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.KindExpenseDeleted {
		t.Errorf("events = %+v", pub.events)
	}
	if err := svc.DeleteExpense(ctx, "2024-03", e.ID); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("second delete: got %v, want ErrExpenseNotFound", err)
	}
}

func TestDeleteCategoryMigration(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	setupMarch(t, svc)

	if _, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 300, "Food", ""); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	msg, err := svc.DeleteCategory(ctx, "2024-03", "Food", true)
	if err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if !strings.Contains(msg, core.OtherCategory) {
		t.Errorf("message %q should mention the Other bucket", msg)
	}

	expenses, err := svc.Expenses("2024-03")
	if err != nil {
		t.Fatalf("Expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Category != core.OtherCategory {
		t.Errorf("expenses = %+v, want one under Other", expenses)
	}
}

func TestAllocationSummary(t *testing.T) {
	svc, _, _ := newTestService(t)
	setupMarch(t, svc) // budget 1000, Food 400

	remaining, pct, err := svc.AllocationSummary("2024-03")
	if err != nil {
		t.Fatalf("AllocationSummary: %v", err)
	}
	if remaining != 600 || pct != 60 {
		t.Errorf("got %v SAR / %v%%, want 600 / 60", remaining, pct)
	}

	if _, _, err := svc.AllocationSummary("2024-09"); !errors.Is(err, core.ErrMonthNotSetUp) {
		t.Errorf("unknown month: got %v", err)
	}
}

func TestLoadFromStore(t *testing.T) {
	m := core.NewBudgetMonth("2024-03")
	m.SetBudget(1000)
	m.AddCategory(core.Category{Name: "Food", LimitType: core.LimitFixed, Value: 400})

	store := &fakeStore{seed: []core.MonthSnapshot{m.Snapshot()}}
	svc := NewBudgetService(core.NewRegistry(), store, nil)

	if err := svc.LoadFromStore(context.Background()); err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	ov, err := svc.Overview("2024-03")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if !ov.IsSetup || ov.Budget != 1000 {
		t.Errorf("restored overview = %+v", ov)
	}
}

func TestNilCollaboratorsAreSafe(t *testing.T) {
	svc := NewBudgetService(core.NewRegistry(), nil, nil)
	ctx := context.Background()

	if err := svc.SetupMonth(ctx, "2024-03", 1000, true); err != nil {
		t.Fatalf("SetupMonth without store: %v", err)
	}
	if _, err := svc.AddExpense(ctx, core.NewDate(2024, 3, 5), 10, "Expenses", ""); err != nil {
		t.Fatalf("AddExpense without store: %v", err)
	}
}
