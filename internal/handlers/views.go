package handlers

import (
	"html/template"
	"strings"

	"spendwise/internal/insights"
	"spendwise/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

var categoryStyles = map[models.Category]CategoryStyle{
	models.Food:           {"🍽️", "#60a5fa"},
	models.Transportation: {"🚌", "#a78bfa"},
	models.Housing:        {"🏠", "#818cf8"},
	models.Utilities:      {"💡", "#fbbf24"},
	models.Entertainment:  {"🎮", "#f472b6"},
	models.Shopping:       {"🛍️", "#34d399"},
	models.Health:         {"🩺", "#f87171"},
	models.Education:      {"📚", "#2dd4bf"},
	models.Travel:         {"✈️", "#fb923c"},
	models.Other:          {"📦", "#94a3b8"},
}

// getCategoryStyle returns the style of a category; unknown names are shown as Other.
func getCategoryStyle(category models.Category) CategoryStyle {
	if style, ok := categoryStyles[category]; ok {
		return style
	}
	return categoryStyles[models.Other]
}

var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
}

// ExpenseItem represents an expense row.
type ExpenseItem struct {
	models.Expense
	DisplayDate   string
	DateInput     string
	DisplayAmount string
	CategoryStyle CategoryStyle
}

func newExpenseItem(e models.Expense) ExpenseItem {
	category := models.ParseCategory(string(e.Category))
	e.Category = category
	return ExpenseItem{
		Expense:       e,
		DisplayDate:   e.Date.Format("Jan 02, 2006"),
		DateInput:     e.Date.Format("2006-01-02"),
		DisplayAmount: e.Currency + " " + e.Amount.StringFixed(2),
		CategoryStyle: getCategoryStyle(category),
	}
}

func newExpenseItems(expenses []models.Expense) []ExpenseItem {
	items := make([]ExpenseItem, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, newExpenseItem(e))
	}
	return items
}

// CategoryBar is one row of the category breakdown.
type CategoryBar struct {
	Category      models.Category
	Total         string
	Count         int
	Percentage    string
	Width         float64
	CategoryStyle CategoryStyle
}

func newCategoryBars(totals []insights.CategoryTotal, totalSpent decimal.Decimal) []CategoryBar {
	bars := make([]CategoryBar, 0, len(totals))
	for _, ct := range totals {
		share := decimal.Zero
		if totalSpent.IsPositive() {
			share = ct.Total.Div(totalSpent).Mul(decimal.NewFromInt(100))
		}
		bars = append(bars, CategoryBar{
			Category:      ct.Category,
			Total:         ct.Total.StringFixed(2),
			Count:         ct.Count,
			Percentage:    share.StringFixed(1),
			Width:         clampWidth(share),
			CategoryStyle: getCategoryStyle(ct.Category),
		})
	}
	return bars
}

// MonthlyBar is one month of the spending chart, scaled to the largest month.
type MonthlyBar struct {
	Month  string
	Amount string
	Width  float64
}

func newMonthlyBars(months []insights.MonthlyTotal) []MonthlyBar {
	largest := decimal.Zero
	for _, m := range months {
		if m.Amount.GreaterThan(largest) {
			largest = m.Amount
		}
	}

	bars := make([]MonthlyBar, 0, len(months))
	for _, m := range months {
		width := decimal.Zero
		if largest.IsPositive() {
			width = m.Amount.Div(largest).Mul(decimal.NewFromInt(100))
		}
		bars = append(bars, MonthlyBar{
			Month:  m.Month,
			Amount: m.Amount.StringFixed(2),
			Width:  clampWidth(width),
		})
	}
	return bars
}

func clampWidth(d decimal.Decimal) float64 {
	f := d.Round(1).InexactFloat64()
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return f
}

// ReportView is the presentation of an insight report.
type ReportView struct {
	TotalSpent            string
	TransactionCount      int
	TopCategory           models.Category
	TopCategoryPercentage string
	AvgTransactionSize    string
	Growth                string
	GrowthDirection       string
	Trend                 string
	MostFrequentCategory  models.Category
	CategoryBars          []CategoryBar
	MonthlyBars           []MonthlyBar
	Insights              []string
}

func newReportView(r insights.Report) ReportView {
	v := ReportView{
		TotalSpent:            r.TotalSpent.StringFixed(2),
		TransactionCount:      r.TransactionCount,
		TopCategory:           r.TopCategory,
		TopCategoryPercentage: r.TopCategoryPercentage,
		AvgTransactionSize:    r.AvgTransactionSize,
		Trend:                 string(r.Trend),
		MostFrequentCategory:  r.MostFrequentCategory,
		CategoryBars:          newCategoryBars(r.CategoryTotals, r.TotalSpent),
		MonthlyBars:           newMonthlyBars(r.Monthly),
		Insights:              r.Insights,
	}
	if r.MonthOverMonthGrowth != nil {
		v.Growth = *r.MonthOverMonthGrowth
		switch {
		case strings.HasPrefix(v.Growth, "-"):
			v.GrowthDirection = "down"
		case v.Growth == "0.0":
			v.GrowthDirection = "flat"
		default:
			v.GrowthDirection = "up"
		}
	}
	return v
}
