package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/models"
	"spendwise/internal/service"
	"spendwise/internal/storage"

	"github.com/shopspring/decimal"
)

// maxBodyBytes caps the size of JSON request bodies.
const maxBodyBytes = 1 << 16

// expenseRequest is the JSON body of create and update calls. Amount accepts
// a number or a numeric string.
type expenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
	RawCategory *string          `json:"rawCategory"`
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts a calendar date, a datetime-local value or RFC 3339.
// Values without a zone are read as UTC.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

func decodeExpenseRequest(w http.ResponseWriter, r *http.Request) (expenseRequest, error) {
	var req expenseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// ListExpensesAPI returns the user's expenses, newest first.
func (h *Handlers) ListExpensesAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	expenses, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to fetch expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// CreateExpenseAPI stores a new expense and returns it with its category.
func (h *Handlers) CreateExpenseAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	req, err := decodeExpenseRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.svc.Add(r.Context(), user.ID, models.ExpenseInput{
		Amount:      req.Amount,
		Currency:    deref(req.Currency),
		Description: deref(req.Description),
		Date:        date,
		RawCategory: deref(req.RawCategory),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidExpense) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, r, "Failed to add expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

// UpdateExpenseAPI applies a partial update to one of the user's expenses.
func (h *Handlers) UpdateExpenseAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := decodeExpenseRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.svc.Update(r.Context(), user.ID, id, models.ExpensePatch{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Date:        date,
		RawCategory: req.RawCategory,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, service.ErrInvalidExpense):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.internalError(w, r, "Failed to update expense", err)
	default:
		writeJSON(w, http.StatusOK, expense)
	}
}

// DeleteExpenseAPI removes one of the user's expenses.
func (h *Handlers) DeleteExpenseAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.svc.Delete(r.Context(), user.ID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	case err != nil:
		h.internalError(w, r, "Failed to delete expense", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
	}
}

// SummaryAPI returns per-category totals, largest first.
func (h *Handlers) SummaryAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	summary, err := h.svc.Summary(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to fetch expense summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// InsightsAPI returns the user's insight report.
func (h *Handlers) InsightsAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	report, err := h.svc.Insights(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to generate expense insights", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid expense id")
		return 0, false
	}
	return id, true
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	return parseDate(*s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.ErrorContext(r.Context(), message, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
