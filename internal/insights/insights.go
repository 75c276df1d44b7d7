// Package insights derives summary statistics and human-readable observations
// from a user's expenses.
package insights

import (
	"fmt"
	"sort"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
)

// NoDataInsight is the only insight reported for a user without expenses.
const NoDataInsight = "No expenses found. Add your first expense to see insights!"

// Trend classifies the last three monthly totals.
type Trend string

const (
	TrendIncreasing  Trend = "increasing"
	TrendDecreasing  Trend = "decreasing"
	TrendFluctuating Trend = "fluctuating"
)

// CategoryTotal is the spend and transaction count of one category.
type CategoryTotal struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// MonthlyTotal is the spend of one calendar month, keyed "YYYY-MM".
type MonthlyTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Report is the full result of Compute. Optional fields are empty when they
// cannot be derived from the data.
type Report struct {
	TotalSpent            decimal.Decimal `json:"totalSpent"`
	TransactionCount      int             `json:"transactionCount,omitempty"`
	TopCategory           models.Category `json:"topCategory,omitempty"`
	TopCategoryPercentage string          `json:"topCategoryPercentage,omitempty"`
	AvgTransactionSize    string          `json:"avgTransactionSize,omitempty"`
	// MonthOverMonthGrowth is nil with fewer than two months of data or when
	// the previous month totals zero.
	MonthOverMonthGrowth *string         `json:"monthOverMonthGrowth"`
	Trend                Trend           `json:"trend,omitempty"`
	MostFrequentCategory models.Category `json:"mostFrequentCategory,omitempty"`
	CategoryTotals       []CategoryTotal `json:"categoryTotals,omitempty"`
	Monthly              []MonthlyTotal  `json:"monthlySpending,omitempty"`
	Insights             []string        `json:"insights"`
}

var hundred = decimal.NewFromInt(100)

// Compute builds a Report from every expense of a single user. The order of
// the input does not matter.
func Compute(expenses []models.Expense) Report {
	if len(expenses) == 0 {
		return Report{
			TotalSpent: decimal.Zero,
			Insights:   []string{NoDataInsight},
		}
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	byCategory := Summarize(expenses)
	top := byCategory[0]
	frequent := mostFrequent(byCategory)
	monthly := monthlyTotals(expenses)

	r := Report{
		TotalSpent:            total,
		TransactionCount:      len(expenses),
		TopCategory:           top.Category,
		TopCategoryPercentage: percentage(top.Total, total),
		AvgTransactionSize:    total.Div(decimal.NewFromInt(int64(len(expenses)))).StringFixed(2),
		MostFrequentCategory:  frequent.Category,
		CategoryTotals:        byCategory,
		Monthly:               monthly,
	}

	insights := []string{
		fmt.Sprintf("Your top spending category is %q at %s%% of total expenses.", r.TopCategory, r.TopCategoryPercentage),
	}

	if growth, ok := monthOverMonth(monthly); ok {
		formatted := growth.StringFixed(1)
		r.MonthOverMonthGrowth = &formatted
		insights = append(insights, growthInsight(growth))
	}

	insights = append(insights, fmt.Sprintf("Your average expense amount is %s.", r.AvgTransactionSize))

	if trend, ok := classifyTrend(monthly); ok {
		r.Trend = trend
		insights = append(insights, trendInsight(trend))
	}

	if frequent.Category != top.Category {
		insights = append(insights, fmt.Sprintf(
			"You make expenses in %q most frequently, but spend more in total on %q.",
			frequent.Category, top.Category))
	}

	r.Insights = insights
	return r
}

// Summarize groups expenses by category, ordered by total descending. Equal
// totals are ordered by category name so the result never depends on input
// order. Expenses with an empty or unknown category count as models.Other.
func Summarize(expenses []models.Expense) []CategoryTotal {
	index := make(map[models.Category]int)
	var totals []CategoryTotal
	for _, e := range expenses {
		cat := models.ParseCategory(string(e.Category))
		i, ok := index[cat]
		if !ok {
			i = len(totals)
			index[cat] = i
			totals = append(totals, CategoryTotal{Category: cat, Total: decimal.Zero})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
		totals[i].Count++
	}

	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

func mostFrequent(totals []CategoryTotal) CategoryTotal {
	best := totals[0]
	for _, ct := range totals[1:] {
		if ct.Count > best.Count || (ct.Count == best.Count && ct.Category < best.Category) {
			best = ct
		}
	}
	return best
}

// monthlyTotals buckets expenses by the year and month of their own date,
// ascending by month.
func monthlyTotals(expenses []models.Expense) []MonthlyTotal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		key := e.Date.Format("2006-01")
		sums[key] = sums[key].Add(e.Amount)
	}

	out := make([]MonthlyTotal, 0, len(sums))
	for month, amount := range sums {
		out = append(out, MonthlyTotal{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func percentage(part, total decimal.Decimal) string {
	if total.IsZero() {
		return decimal.Zero.StringFixed(1)
	}
	return part.Mul(hundred).Div(total).StringFixed(1)
}

// monthOverMonth compares the two most recent months. It reports false when
// there are fewer than two months or the earlier month totals zero.
func monthOverMonth(monthly []MonthlyTotal) (decimal.Decimal, bool) {
	if len(monthly) < 2 {
		return decimal.Zero, false
	}
	last := monthly[len(monthly)-1].Amount
	prev := monthly[len(monthly)-2].Amount
	if prev.IsZero() {
		return decimal.Zero, false
	}
	return last.Sub(prev).Mul(hundred).Div(prev), true
}

func growthInsight(growth decimal.Decimal) string {
	switch growth.Round(1).Sign() {
	case 1:
		return fmt.Sprintf("Your spending increased by %s%% compared to the previous month.", growth.StringFixed(1))
	case -1:
		return fmt.Sprintf("Your spending decreased by %s%% compared to the previous month.", growth.Abs().StringFixed(1))
	default:
		return "Your spending is the same as the previous month."
	}
}

func classifyTrend(monthly []MonthlyTotal) (Trend, bool) {
	if len(monthly) < 3 {
		return "", false
	}
	last3 := monthly[len(monthly)-3:]
	a, b, c := last3[0].Amount, last3[1].Amount, last3[2].Amount
	switch {
	case a.LessThan(b) && b.LessThan(c):
		return TrendIncreasing, true
	case a.GreaterThan(b) && b.GreaterThan(c):
		return TrendDecreasing, true
	default:
		return TrendFluctuating, true
	}
}

func trendInsight(t Trend) string {
	switch t {
	case TrendIncreasing:
		return "Your spending has been consistently increasing over the last 3 months."
	case TrendDecreasing:
		return "Your spending has been consistently decreasing over the last 3 months."
	default:
		return "Your spending pattern has fluctuated over the last 3 months."
	}
}
