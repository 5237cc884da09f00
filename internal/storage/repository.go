// Package storage persists budget months to SQLite. Months are written
// through as whole snapshots: one transaction replaces the month row and its
// categories and expenses.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetbook/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveMonth replaces the stored state of one month with the snapshot.
func (r *SQLiteRepository) SaveMonth(ctx context.Context, snap core.MonthSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM months WHERE month_key = ?`, snap.Key); err != nil {
		return fmt.Errorf("clear month %s: %w", snap.Key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE month_key = ?`, snap.Key); err != nil {
		return fmt.Errorf("clear categories %s: %w", snap.Key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE month_key = ?`, snap.Key); err != nil {
		return fmt.Errorf("clear expenses %s: %w", snap.Key, err)
	}

	var budget sql.NullFloat64
	if snap.Budget != nil {
		budget = sql.NullFloat64{Float64: *snap.Budget, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO months (month_key, budget, next_expense_id) VALUES (?, ?, ?)`,
		snap.Key, budget, snap.NextExpenseID)
	if err != nil {
		return fmt.Errorf("insert month %s: %w", snap.Key, err)
	}

	for i, c := range snap.Categories {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO categories (month_key, name, limit_type, value, position) VALUES (?, ?, ?, ?, ?)`,
			snap.Key, c.Name, string(c.LimitType), c.Value, i)
		if err != nil {
			return fmt.Errorf("insert category %s/%s: %w", snap.Key, c.Name, err)
		}
	}

	for _, e := range snap.Expenses {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expenses (month_key, id, date, amount, category, description) VALUES (?, ?, ?, ?, ?, ?)`,
			snap.Key, e.ID, e.Date.String(), e.Amount, e.Category, e.Description)
		if err != nil {
			return fmt.Errorf("insert expense %s/%d: %w", snap.Key, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit month %s: %w", snap.Key, err)
	}

	slog.InfoContext(ctx, "Month saved to SQLite",
		"month_key", snap.Key,
		"categories", len(snap.Categories),
		"expenses", len(snap.Expenses))

	return nil
}

// LoadMonth reads one month's snapshot. Returns sql.ErrNoRows when absent.
func (r *SQLiteRepository) LoadMonth(ctx context.Context, key string) (core.MonthSnapshot, error) {
	snap := core.MonthSnapshot{Key: key}

	var budget sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT budget, next_expense_id FROM months WHERE month_key = ?`, key).
		Scan(&budget, &snap.NextExpenseID)
	if err != nil {
		return snap, err
	}
	if budget.Valid {
		b := budget.Float64
		snap.Budget = &b
	}

	snap.Categories, err = r.loadCategories(ctx, key)
	if err != nil {
		return snap, err
	}
	snap.Expenses, err = r.loadExpenses(ctx, key)
	if err != nil {
		return snap, err
	}
	return snap, nil
}

// LoadAll reads every stored month, for seeding the registry at startup.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.MonthSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month_key FROM months ORDER BY month_key`)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan month key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate months: %w", err)
	}

	snaps := make([]core.MonthSnapshot, 0, len(keys))
	for _, key := range keys {
		snap, err := r.LoadMonth(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load month %s: %w", key, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, key string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, limit_type, value FROM categories WHERE month_key = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var limitType string
		if err := rows.Scan(&c.Name, &limitType, &c.Value); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.LimitType = core.LimitType(limitType)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context, key string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount, category, description FROM expenses WHERE month_key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var date string
		if err := rows.Scan(&e.ID, &date, &e.Amount, &e.Category, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", date, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
