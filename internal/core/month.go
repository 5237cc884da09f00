package core

import (
	"errors"
	"fmt"
	"strings"
)

// Epsilon is the absolute tolerance used for every ceiling comparison, so
// floating-point representation error never rejects an amount that exactly
// fills the remaining budget.
const Epsilon = 1e-9

// OtherCategory is the fallback bucket expenses migrate into when their
// category is deleted. It is materialized lazily with an unlimited cap.
const OtherCategory = "Other"

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrDeletionCancelled  = errors.New("deletion cancelled")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrMonthNotSetUp      = errors.New("month is not set up")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrEmptyName          = errors.New("category name is required")
	ErrAllocationExceeded = errors.New("allocation limit exceeded")
	ErrBudgetExceeded     = errors.New("monthly budget exceeded")
)

// CategoryTotal pairs a category name with its aggregated spend.
type CategoryTotal struct {
	Name  string
	Total float64
}

// DayTotal pairs a calendar day with its aggregated spend.
type DayTotal struct {
	Date  Date
	Total float64
}

// BudgetMonth owns one month's budget figure, its category set and its
// expense ledger. It enforces the structural invariants (name uniqueness,
// sequential expense IDs, no orphaned category references); the two budget
// ceilings are checked by callers through WouldExceedAllocation and
// WouldExceedSpend before committing, so error messages can report the exact
// remaining capacity.
type BudgetMonth struct {
	key       string
	budget    float64
	budgetSet bool
	catOrder  []string
	cats      map[string]*Category
	expenses  []*Expense
	nextID    int
}

// NewBudgetMonth creates an empty month for the given YYYY-MM key.
func NewBudgetMonth(key string) *BudgetMonth {
	return &BudgetMonth{
		key:    key,
		cats:   make(map[string]*Category),
		nextID: 1,
	}
}

// Key returns the month's YYYY-MM key.
func (m *BudgetMonth) Key() string {
	return m.key
}

// Budget returns the monthly budget figure and whether one has been set.
func (m *BudgetMonth) Budget() (float64, bool) {
	return m.budget, m.budgetSet
}

// SetBudget replaces the budget figure. Existing allocations and expenses are
// not re-validated against the new figure; callers decide how to handle
// over-allocation after a decrease via AllocationRemaining.
func (m *BudgetMonth) SetBudget(amount float64) {
	m.budget = amount
	m.budgetSet = true
}

// IsSetup reports whether the month has both a budget and at least one category.
func (m *BudgetMonth) IsSetup() bool {
	return m.budgetSet && len(m.cats) > 0
}

// AddCategory inserts the category if its trimmed name is non-empty and not
// already present. The allocation ceiling is the caller's concern; this
// method performs the uniqueness check only.
func (m *BudgetMonth) AddCategory(c Category) bool {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return false
	}
	if _, exists := m.cats[name]; exists {
		return false
	}
	c.Name = name
	m.cats[name] = &c
	m.catOrder = append(m.catOrder, name)
	return true
}

// Category looks up a category by name.
func (m *BudgetMonth) Category(name string) (Category, bool) {
	c, ok := m.cats[name]
	if !ok {
		return Category{}, false
	}
	return *c, true
}

// Categories returns the category set in insertion order.
func (m *BudgetMonth) Categories() []Category {
	out := make([]Category, 0, len(m.catOrder))
	for _, name := range m.catOrder {
		out = append(out, *m.cats[name])
	}
	return out
}

// UpdateCategoryLimit overwrites the limit type and value of an existing
// category. Returns false if the name is absent. No allocation re-validation
// happens here; callers check first, same as AddCategory.
func (m *BudgetMonth) UpdateCategoryLimit(name string, lt LimitType, value float64) bool {
	c, ok := m.cats[name]
	if !ok {
		return false
	}
	c.LimitType = lt
	c.Value = value
	return true
}

// HasExpenses reports whether any expense references the named category.
func (m *BudgetMonth) HasExpenses(name string) bool {
	for _, e := range m.expenses {
		if e.Category == name {
			return true
		}
	}
	return false
}

// DeleteCategory removes a category. If it still has expenses and moveToOther
// is false the deletion is cancelled without mutating anything; with
// moveToOther the expenses are first reassigned to the "Other" bucket, which
// is created on demand. The check-then-mutate order guarantees no expense is
// ever left referencing a deleted category — which is also why "Other" itself
// cannot be deleted while it holds expenses.
func (m *BudgetMonth) DeleteCategory(name string, moveToOther bool) (string, error) {
	if _, ok := m.cats[name]; !ok {
		return "", ErrCategoryNotFound
	}
	moved := 0
	if m.HasExpenses(name) {
		if !moveToOther || name == OtherCategory {
			return "", ErrDeletionCancelled
		}
		if _, ok := m.cats[OtherCategory]; !ok {
			m.AddCategory(Category{Name: OtherCategory, LimitType: LimitUnlimited})
		}
		for _, e := range m.expenses {
			if e.Category == name {
				e.Category = OtherCategory
				moved++
			}
		}
	}
	delete(m.cats, name)
	for i, n := range m.catOrder {
		if n == name {
			m.catOrder = append(m.catOrder[:i], m.catOrder[i+1:]...)
			break
		}
	}
	if moved > 0 {
		return fmt.Sprintf("category %q deleted, %d expenses moved to %q", name, moved, OtherCategory), nil
	}
	return fmt.Sprintf("category %q deleted", name), nil
}

// AllocatedTotal sums the currency limits of all categories against the
// current budget.
func (m *BudgetMonth) AllocatedTotal() float64 {
	var total float64
	for _, name := range m.catOrder {
		total += m.cats[name].Limit(m.budget)
	}
	return total
}

// AllocationRemaining returns budget minus the sum of category limits.
// Zero when no budget has been set. A negative value means the month is
// over-allocated, typically after a budget decrease.
func (m *BudgetMonth) AllocationRemaining() float64 {
	if !m.budgetSet {
		return 0
	}
	return m.budget - m.AllocatedTotal()
}

// WouldExceedAllocation reports whether committing the candidate category
// would push the allocation sum past the budget, within Epsilon.
func (m *BudgetMonth) WouldExceedAllocation(c Category) bool {
	return c.Limit(m.budget) > m.AllocationRemaining()+Epsilon
}

// WouldExceedSpend reports whether adding the amount would push the expense
// total past the budget, within Epsilon. Always true while no budget is set.
func (m *BudgetMonth) WouldExceedSpend(amount float64) bool {
	if !m.budgetSet {
		return true
	}
	return m.TotalExpenses()+amount > m.budget+Epsilon
}

// AddExpense constructs and appends an expense with the next sequential ID.
// Amount positivity, month setup and the spend ceiling are the caller's
// pre-checks; the entity only assigns identity and trims the description.
func (m *BudgetMonth) AddExpense(date Date, amount float64, category, description string) *Expense {
	e := &Expense{
		ID:          m.nextID,
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(description),
	}
	m.nextID++
	m.expenses = append(m.expenses, e)
	return e
}

// Expenses returns the ledger in creation order. Entries are shared with the
// month so in-place edits through the Expense mutators are visible.
func (m *BudgetMonth) Expenses() []*Expense {
	out := make([]*Expense, len(m.expenses))
	copy(out, m.expenses)
	return out
}

// ExpenseByID returns the expense with the given ID, or nil.
func (m *BudgetMonth) ExpenseByID(id int) *Expense {
	for _, e := range m.expenses {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// DeleteExpenseByID removes the expense with the given ID. Returns false if
// no such ID exists. Freed IDs are not reused.
func (m *BudgetMonth) DeleteExpenseByID(id int) bool {
	for i, e := range m.expenses {
		if e.ID == id {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return true
		}
	}
	return false
}

// TotalExpenses sums all logged amounts.
func (m *BudgetMonth) TotalExpenses() float64 {
	var total float64
	for _, e := range m.expenses {
		total += e.Amount
	}
	return total
}

// TotalByCategory aggregates spend per category name. Categories with no
// expenses are absent from the map rather than zero-valued.
func (m *BudgetMonth) TotalByCategory() map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range m.expenses {
		totals[e.Category] += e.Amount
	}
	return totals
}

// categoryTotalsOrdered aggregates spend per category preserving the order in
// which each category first appears in the ledger, so tie-breaks are stable.
func (m *BudgetMonth) categoryTotalsOrdered() []CategoryTotal {
	totals := make(map[string]int)
	out := make([]CategoryTotal, 0)
	for _, e := range m.expenses {
		idx, seen := totals[e.Category]
		if !seen {
			idx = len(out)
			totals[e.Category] = idx
			out = append(out, CategoryTotal{Name: e.Category})
		}
		out[idx].Total += e.Amount
	}
	return out
}

// TopAndLowestCategory returns the categories with the highest and lowest
// aggregated spend. ok is false when the month has no expenses. Ties resolve
// to the category whose first expense was logged earlier.
func (m *BudgetMonth) TopAndLowestCategory() (top, lowest CategoryTotal, ok bool) {
	ordered := m.categoryTotalsOrdered()
	if len(ordered) == 0 {
		return CategoryTotal{}, CategoryTotal{}, false
	}
	top, lowest = ordered[0], ordered[0]
	for _, ct := range ordered[1:] {
		if ct.Total > top.Total {
			top = ct
		}
		if ct.Total < lowest.Total {
			lowest = ct
		}
	}
	return top, lowest, true
}

// HighestSpendingDay returns the calendar day with the largest summed spend.
// ok is false when the month has no expenses; ties resolve to the day first
// seen in the ledger.
func (m *BudgetMonth) HighestSpendingDay() (DayTotal, bool) {
	if len(m.expenses) == 0 {
		return DayTotal{}, false
	}
	idx := make(map[Date]int)
	days := make([]DayTotal, 0)
	for _, e := range m.expenses {
		i, seen := idx[e.Date]
		if !seen {
			i = len(days)
			idx[e.Date] = i
			days = append(days, DayTotal{Date: e.Date})
		}
		days[i].Total += e.Amount
	}
	best := days[0]
	for _, d := range days[1:] {
		if d.Total > best.Total {
			best = d
		}
	}
	return best, true
}

// StatusSummaryCounts classifies every category's spend ratio and counts the
// buckets. All buckets are present in the result; everything is zero while no
// budget is set.
func (m *BudgetMonth) StatusSummaryCounts() map[Status]int {
	counts := make(map[Status]int, 5)
	for _, s := range Statuses() {
		counts[s] = 0
	}
	if !m.budgetSet {
		return counts
	}
	totals := m.TotalByCategory()
	for _, name := range m.catOrder {
		limit := m.cats[name].Limit(m.budget)
		counts[Classify(totals[name], limit)]++
	}
	return counts
}

// MonthSnapshot is the serializable view of a month's state, used by the
// storage layer and by RestoreMonth.
type MonthSnapshot struct {
	Key           string
	Budget        *float64
	Categories    []Category
	Expenses      []Expense
	NextExpenseID int
}

// Snapshot captures the month's full state.
func (m *BudgetMonth) Snapshot() MonthSnapshot {
	s := MonthSnapshot{
		Key:           m.key,
		Categories:    m.Categories(),
		NextExpenseID: m.nextID,
	}
	if m.budgetSet {
		b := m.budget
		s.Budget = &b
	}
	s.Expenses = make([]Expense, len(m.expenses))
	for i, e := range m.expenses {
		s.Expenses[i] = *e
	}
	return s
}

// RestoreMonth rebuilds a month from a snapshot.
func RestoreMonth(s MonthSnapshot) *BudgetMonth {
	m := NewBudgetMonth(s.Key)
	if s.Budget != nil {
		m.SetBudget(*s.Budget)
	}
	for _, c := range s.Categories {
		m.AddCategory(c)
	}
	for _, e := range s.Expenses {
		cp := e
		m.expenses = append(m.expenses, &cp)
	}
	m.nextID = s.NextExpenseID
	if m.nextID < 1 {
		m.nextID = 1
	}
	return m
}
