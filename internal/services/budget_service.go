// Package services orchestrates budget operations across the in-memory
// registry, SQLite persistence and AMQP events. Validation against the
// allocation and spend ceilings happens here, before the registry is touched.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
)

// MonthStore persists whole month snapshots.
type MonthStore interface {
	SaveMonth(ctx context.Context, snap core.MonthSnapshot) error
	LoadAll(ctx context.Context) ([]core.MonthSnapshot, error)
}

// EventPublisher announces month changes to interested consumers.
type EventPublisher interface {
	PublishMonthEvent(ctx context.Context, msg *amqp.MonthEventMessage) error
}

// BudgetService owns the registry of budget months. Store and events are
// optional: a nil store keeps months in memory only, a nil publisher skips
// event publication.
type BudgetService struct {
	mu       sync.Mutex
	registry *core.Registry
	store    MonthStore
	events   EventPublisher
}

func NewBudgetService(registry *core.Registry, store MonthStore, events EventPublisher) *BudgetService {
	return &BudgetService{
		registry: registry,
		store:    store,
		events:   events,
	}
}

// LoadFromStore seeds the registry with every persisted month.
func (s *BudgetService) LoadFromStore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snaps, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load months: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		s.registry.Put(core.RestoreMonth(snap))
	}
	slog.InfoContext(ctx, "Loaded months from store", "count", len(snaps))
	return nil
}

// SetupMonth sets the monthly budget and, when useDefaults is true, installs
// the default category split. Safe to call on an existing month; categories
// already present are kept.
func (s *BudgetService) SetupMonth(ctx context.Context, key string, budget float64, useDefaults bool) error {
	if _, err := core.ParseMonthKey(key); err != nil {
		return err
	}
	if budget <= 0 {
		return fmt.Errorf("%w: budget must be positive", core.ErrInvalidAmount)
	}

	s.mu.Lock()
	m := s.registry.GetOrCreate(key)
	m.SetBudget(budget)
	if useDefaults {
		for _, c := range core.DefaultCategories() {
			m.AddCategory(c)
		}
	}
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindBudgetChanged, 0)
	return nil
}

// UpdateBudget changes the budget of an existing month. Existing category
// limits are kept as they are, even if the smaller budget no longer covers
// them; AllocationSummary will report negative headroom.
func (s *BudgetService) UpdateBudget(ctx context.Context, key string, budget float64) error {
	if budget <= 0 {
		return fmt.Errorf("%w: budget must be positive", core.ErrInvalidAmount)
	}

	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return core.ErrMonthNotSetUp
	}
	m.SetBudget(budget)
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindBudgetChanged, 0)
	return nil
}

// AddCategory adds a category after checking it fits the unallocated share of
// the budget. The rejection message quotes the maximum still available, in the
// unit the caller asked in.
func (s *BudgetService) AddCategory(ctx context.Context, key string, c core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return core.ErrEmptyName
	}
	if c.Value <= 0 {
		return fmt.Errorf("%w: category value must be positive", core.ErrInvalidAmount)
	}

	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return core.ErrMonthNotSetUp
	}
	if _, exists := m.Category(c.Name); exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrDuplicateCategory, c.Name)
	}
	if m.WouldExceedAllocation(c) {
		err := allocationError(m, c.LimitType)
		s.mu.Unlock()
		return err
	}
	m.AddCategory(c)
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindCategoryChanged, 0)
	return nil
}

// UpdateCategoryLimit changes a category's limit, validating the new limit
// against the headroom freed by dropping the old one.
func (s *BudgetService) UpdateCategoryLimit(ctx context.Context, key, name string, lt core.LimitType, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: category value must be positive", core.ErrInvalidAmount)
	}
	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return core.ErrMonthNotSetUp
	}
	old, exists := m.Category(name)
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrCategoryNotFound, name)
	}

	budget, _ := m.Budget()
	headroom := m.AllocationRemaining() + old.Limit(budget)
	next := core.Category{Name: name, LimitType: lt, Value: value}
	if next.Limit(budget) > headroom+core.Epsilon {
		err := allocationHeadroomError(m, headroom, lt)
		s.mu.Unlock()
		return err
	}

	m.UpdateCategoryLimit(name, lt, value)
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindCategoryChanged, 0)
	return nil
}

// DeleteCategory removes a category. When moveToOther is true its expenses are
// migrated to the unlimited "Other" bucket; otherwise a category that still
// holds expenses refuses deletion. Returns a human-readable outcome message.
func (s *BudgetService) DeleteCategory(ctx context.Context, key, name string, moveToOther bool) (string, error) {
	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return "", core.ErrMonthNotSetUp
	}
	msg, err := m.DeleteCategory(name, moveToOther)
	var snap core.MonthSnapshot
	if err == nil {
		snap = m.Snapshot()
	}
	s.mu.Unlock()

	if err != nil {
		return "", err
	}
	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindCategoryChanged, 0)
	return msg, nil
}

// AddExpense records an expense in the month its date falls in, not the month
// the caller happens to be viewing. The month must be set up and the amount
// must fit the remaining budget.
func (s *BudgetService) AddExpense(ctx context.Context, date core.Date, amount float64, category, description string) (core.Expense, error) {
	if amount <= 0 {
		return core.Expense{}, fmt.Errorf("%w: amount must be positive", core.ErrInvalidAmount)
	}
	key := date.MonthKey()

	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil || !m.IsSetup() {
		s.mu.Unlock()
		return core.Expense{}, core.ErrMonthNotSetUp
	}
	if _, exists := m.Category(category); !exists {
		s.mu.Unlock()
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrCategoryNotFound, category)
	}
	if m.WouldExceedSpend(amount) {
		err := spendError(m)
		s.mu.Unlock()
		return core.Expense{}, err
	}
	e := *m.AddExpense(date, amount, category, description)
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindExpenseAdded, e.ID)
	return e, nil
}

// EditExpense updates an existing expense's amount, category or description.
// The amount change is validated against the spend ceiling net of the old
// amount.
func (s *BudgetService) EditExpense(ctx context.Context, key string, id int, amount float64, category, description string) (core.Expense, error) {
	if amount <= 0 {
		return core.Expense{}, fmt.Errorf("%w: amount must be positive", core.ErrInvalidAmount)
	}

	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return core.Expense{}, core.ErrMonthNotSetUp
	}
	e := m.ExpenseByID(id)
	if e == nil {
		s.mu.Unlock()
		return core.Expense{}, fmt.Errorf("%w: %d", core.ErrExpenseNotFound, id)
	}
	if _, exists := m.Category(category); !exists {
		s.mu.Unlock()
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrCategoryNotFound, category)
	}
	if delta := amount - e.Amount; delta > 0 && m.WouldExceedSpend(delta) {
		err := spendError(m)
		s.mu.Unlock()
		return core.Expense{}, err
	}
	e.SetAmount(amount)
	e.SetCategory(category)
	e.SetDescription(description)
	updated := *e
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindExpenseUpdated, id)
	return updated, nil
}

// DeleteExpense removes an expense by ID.
func (s *BudgetService) DeleteExpense(ctx context.Context, key string, id int) error {
	s.mu.Lock()
	m := s.registry.Month(key)
	if m == nil {
		s.mu.Unlock()
		return core.ErrMonthNotSetUp
	}
	if !m.DeleteExpenseByID(id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", core.ErrExpenseNotFound, id)
	}
	snap := m.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.publish(ctx, key, amqp.KindExpenseDeleted, id)
	return nil
}

// Expenses returns the month's expenses in creation order.
func (s *BudgetService) Expenses(key string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.registry.Month(key)
	if m == nil {
		return nil, core.ErrMonthNotSetUp
	}
	ptrs := m.Expenses()
	out := make([]core.Expense, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out, nil
}

// ExpenseByID returns one expense.
func (s *BudgetService) ExpenseByID(key string, id int) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.registry.Month(key)
	if m == nil {
		return core.Expense{}, core.ErrMonthNotSetUp
	}
	e := m.ExpenseByID(id)
	if e == nil {
		return core.Expense{}, fmt.Errorf("%w: %d", core.ErrExpenseNotFound, id)
	}
	return *e, nil
}

// AllocationSummary reports the budget share not yet claimed by category
// limits, as an amount and as a percentage of the budget.
func (s *BudgetService) AllocationSummary(key string) (remaining, pct float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.registry.Month(key)
	if m == nil {
		return 0, 0, core.ErrMonthNotSetUp
	}
	budget, ok := m.Budget()
	if !ok {
		return 0, 0, core.ErrMonthNotSetUp
	}
	remaining = m.AllocationRemaining()
	if budget > 0 {
		pct = remaining / budget * 100
	}
	return remaining, pct, nil
}

// Overview builds the month's summary report.
func (s *BudgetService) Overview(key string) (core.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.registry.Month(key)
	if m == nil {
		return core.Overview{}, core.ErrMonthNotSetUp
	}
	return m.Overview(), nil
}

// MonthKeys lists the known months, sorted.
func (s *BudgetService) MonthKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Keys()
}

func (s *BudgetService) persist(ctx context.Context, snap core.MonthSnapshot) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveMonth(ctx, snap); err != nil {
		// The in-memory registry already committed; log and carry on.
		slog.ErrorContext(ctx, "Failed to persist month",
			"month_key", snap.Key, "error", err)
	}
}

func (s *BudgetService) publish(ctx context.Context, key, kind string, expenseID int) {
	if s.events == nil {
		return
	}
	msg := amqp.NewMonthEventMessage(key, kind, expenseID)
	if err := s.events.PublishMonthEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish month event",
			"month_key", key, "kind", kind, "error", err)
	}
}

func allocationError(m *core.BudgetMonth, lt core.LimitType) error {
	return allocationHeadroomError(m, m.AllocationRemaining(), lt)
}

func allocationHeadroomError(m *core.BudgetMonth, headroom float64, lt core.LimitType) error {
	budget, _ := m.Budget()
	if lt == core.LimitPercent && budget > 0 {
		pct := headroom / budget * 100
		return fmt.Errorf("%w: Limits exceeded. Max available: %s%%",
			core.ErrAllocationExceeded, formatAmount(pct))
	}
	return fmt.Errorf("%w: Limits exceeded. Max available: %s SAR",
		core.ErrAllocationExceeded, formatAmount(headroom))
}

func spendError(m *core.BudgetMonth) error {
	budget, _ := m.Budget()
	left := budget - m.TotalExpenses()
	if left < 0 {
		left = 0
	}
	return fmt.Errorf("%w: Monthly budget exceeded! You only have %s SAR left",
		core.ErrBudgetExceeded, formatAmount(left))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
