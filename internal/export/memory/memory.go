// Package memory keeps exported month reports in process memory. Useful for
// development and tests, and as the default when no Sheets credentials are
// configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetbook/internal/core"
)

type Store struct {
	mu      sync.Mutex
	reports map[string]core.Overview
	writes  int
}

func New() *Store {
	return &Store{reports: make(map[string]core.Overview)}
}

// WriteMonthReport stores the overview, replacing any earlier report for the
// same month key.
func (s *Store) WriteMonthReport(_ context.Context, ov core.Overview) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[ov.MonthKey] = ov
	s.writes++
	return fmt.Sprintf("mem:%s", ov.MonthKey), nil
}

// Report returns the last report written for key.
func (s *Store) Report(key string) (core.Overview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov, ok := s.reports[key]
	return ov, ok
}

// Writes returns the total number of reports written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
