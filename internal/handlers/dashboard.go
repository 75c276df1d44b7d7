package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"spendwise/internal/models"
)

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	User       *models.User
	Report     ReportView
	Expenses   []ExpenseItem
	Categories []models.Category
	Today      string
	// Currency preselected in the add form
	Currency string
}

// Dashboard renders the signed-in user's expenses and insights.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, report, err := h.svc.Dashboard(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard error", "user_id", user.ID, "error", err)
		http.Error(w, "Error loading dashboard", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "dashboard.html", DashboardViewModel{
		User:       user,
		Report:     newReportView(report),
		Expenses:   newExpenseItems(expenses),
		Categories: models.Categories(),
		Today:      time.Now().Format("2006-01-02"),
		Currency:   models.DefaultCurrency,
	})
}

// StatsViewModel is the data passed to the monthly statistics template.
type StatsViewModel struct {
	User           *models.User
	Year           int
	Month          int
	MonthName      string
	Report         ReportView
	Expenses       []ExpenseItem
	PrevYear       int
	PrevMonth      int
	NextYear       int
	NextMonth      int
	IsCurrentMonth bool
}

// Statistics renders the report of a single calendar month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}

	expenses, report, err := h.svc.Month(r.Context(), user.ID, year, time.Month(month))
	if err != nil {
		slog.ErrorContext(r.Context(), "Statistics error", "user_id", user.ID, "year", year, "month", month, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prevDate := first.AddDate(0, -1, 0)
	nextDate := first.AddDate(0, 1, 0)

	h.render(w, r, "stats.html", StatsViewModel{
		User:           user,
		Year:           year,
		Month:          month,
		MonthName:      time.Month(month).String(),
		Report:         newReportView(report),
		Expenses:       newExpenseItems(expenses),
		PrevYear:       prevDate.Year(),
		PrevMonth:      int(prevDate.Month()),
		NextYear:       nextDate.Year(),
		NextMonth:      int(nextDate.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}
