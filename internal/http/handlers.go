package http

import (
	"fmt"
	"net/http"
	"strconv"

	"budgetbook/internal/core"
)

type expenseDTO struct {
	ID          int     `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	MonthKey    string  `json:"month_key"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		MonthKey:    e.Date.MonthKey(),
	}
}

type categoryReportDTO struct {
	Name         string  `json:"name"`
	LimitType    string  `json:"limit_type"`
	LimitDisplay string  `json:"limit_display"`
	Limit        float64 `json:"limit"`
	Spent        float64 `json:"spent"`
	Ratio        float64 `json:"ratio"`
	Status       string  `json:"status"`
}

type overviewDTO struct {
	MonthKey     string              `json:"month_key"`
	IsSetup      bool                `json:"is_setup"`
	Budget       float64             `json:"budget"`
	TotalSpent   float64             `json:"total_spent"`
	Remaining    float64             `json:"remaining"`
	Categories   []categoryReportDTO `json:"categories"`
	StatusCounts map[string]int      `json:"status_counts"`
	Top          *categoryTotalDTO   `json:"top_category,omitempty"`
	Lowest       *categoryTotalDTO   `json:"lowest_category,omitempty"`
	HighestDay   *dayTotalDTO        `json:"highest_spending_day,omitempty"`
}

type categoryTotalDTO struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type dayTotalDTO struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

func toOverviewDTO(ov core.Overview) overviewDTO {
	dto := overviewDTO{
		MonthKey:     ov.MonthKey,
		IsSetup:      ov.IsSetup,
		Budget:       ov.Budget,
		TotalSpent:   ov.TotalSpent,
		Remaining:    ov.Remaining,
		Categories:   make([]categoryReportDTO, 0, len(ov.Categories)),
		StatusCounts: make(map[string]int, len(ov.StatusCounts)),
	}
	for _, c := range ov.Categories {
		dto.Categories = append(dto.Categories, categoryReportDTO{
			Name:         c.Name,
			LimitType:    string(c.LimitType),
			LimitDisplay: c.LimitDisplay,
			Limit:        c.Limit,
			Spent:        c.Spent,
			Ratio:        c.Ratio,
			Status:       string(c.Status),
		})
	}
	for status, n := range ov.StatusCounts {
		dto.StatusCounts[string(status)] = n
	}
	if ov.Top != nil {
		dto.Top = &categoryTotalDTO{Name: ov.Top.Name, Total: ov.Top.Total}
	}
	if ov.Lowest != nil {
		dto.Lowest = &categoryTotalDTO{Name: ov.Lowest.Name, Total: ov.Lowest.Total}
	}
	if ov.HighestDay != nil {
		dto.HighestDay = &dayTotalDTO{Date: ov.HighestDay.Date.String(), Total: ov.HighestDay.Total}
	}
	return dto
}

func parseLimitType(s string) (core.LimitType, error) {
	switch core.LimitType(s) {
	case core.LimitPercent, core.LimitFixed:
		return core.LimitType(s), nil
	default:
		return "", fmt.Errorf("limit_type must be %q or %q", core.LimitPercent, core.LimitFixed)
	}
}

func (s *Server) handleListMonths(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"months": s.svc.MonthKeys()})
}

func (s *Server) handleSetupMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MonthKey    string  `json:"month_key"`
		Budget      float64 `json:"budget"`
		UseDefaults bool    `json:"use_defaults"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := core.ParseMonthKey(req.MonthKey); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "month_key must be YYYY-MM"})
		return
	}
	if err := s.svc.SetupMonth(r.Context(), req.MonthKey, req.Budget, req.UseDefaults); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(req.MonthKey)
	ov, err := s.svc.Overview(req.MonthKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOverviewDTO(ov))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req struct {
		Budget float64 `json:"budget"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.UpdateBudget(r.Context(), key, req.Budget); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if ov, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toOverviewDTO(ov))
		return
	}
	ov, err := s.svc.Overview(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.overviewCache.Set(key, ov)
	writeJSON(w, http.StatusOK, toOverviewDTO(ov))
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	remaining, pct, err := s.svc.AllocationSummary(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"remaining": remaining,
		"pct":       pct,
	})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req struct {
		Name      string  `json:"name"`
		LimitType string  `json:"limit_type"`
		Value     float64 `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lt, err := parseLimitType(req.LimitType)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	c := core.Category{Name: req.Name, LimitType: lt, Value: req.Value}
	if err := s.svc.AddCategory(r.Context(), key, c); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	name := r.PathValue("name")
	var req struct {
		LimitType string  `json:"limit_type"`
		Value     float64 `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lt, err := parseLimitType(req.LimitType)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	if err := s.svc.UpdateCategoryLimit(r.Context(), key, name, lt, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	name := r.PathValue("name")
	moveToOther := r.URL.Query().Get("move_to_other") == "true"

	msg, err := s.svc.DeleteCategory(r.Context(), key, name, moveToOther)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}
	e, err := s.svc.AddExpense(r.Context(), date, req.Amount, req.Category, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(date.MonthKey())
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	expenses, err := s.svc.Expenses(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, map[string][]expenseDTO{"expenses": dtos})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	id, ok := parseExpenseID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.ExpenseByID(key, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	id, ok := parseExpenseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := s.svc.EditExpense(r.Context(), key, id, req.Amount, req.Category, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	id, ok := parseExpenseID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), key, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateMonth(key)
	w.WriteHeader(http.StatusNoContent)
}

func parseExpenseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "expense id must be a positive integer"})
		return 0, false
	}
	return id, true
}
