package categorizer

import (
	"sync"
	"testing"

	"spendwise/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		description string
		want        models.Category
	}{
		{"Lunch with the team", models.Food},
		{"PIZZA night", models.Food},
		{"Uber to airport", models.Transportation},
		{"Monthly rent", models.Housing},
		{"Electricity bill", models.Utilities},
		{"Netflix", models.Entertainment},
		{"New shoes", models.Shopping},
		{"Dentist - dental cleaning", models.Health},
		{"University tuition", models.Education},
		{"Hotel for conference", models.Travel},
		{"Random stuff", models.Other},
		{"", models.Other},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.description))
		})
	}
}

func TestCategorize_GasIsTransportation(t *testing.T) {
	assert.Equal(t, models.Transportation, Categorize("gas"))
	assert.Equal(t, models.Transportation, Categorize("Paid the GAS company"))
}

func TestCategorize_FirstCategoryWins(t *testing.T) {
	// "coffee" (Food) and "train" (Transportation) both match; Food is declared first.
	assert.Equal(t, models.Food, Categorize("coffee on the train"))

	// Substring matching: "eat" inside "theater" sends it to Food before Entertainment.
	assert.Equal(t, models.Food, Categorize("theater"))
}

func TestMatch_ReportsKeyword(t *testing.T) {
	cat, kw := New().Match("Water and internet")
	assert.Equal(t, models.Utilities, cat)
	assert.Equal(t, "water", kw)

	cat, kw = New().Match("nothing here")
	assert.Equal(t, models.Other, cat)
	assert.Empty(t, kw)
}

func TestCategorize_Deterministic(t *testing.T) {
	c := New()
	first := c.Categorize("Grocery run")
	for range 100 {
		assert.Equal(t, first, c.Categorize("Grocery run"))
	}
}

func TestCategorize_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, models.Travel, c.Categorize("flight home"))
		}()
	}
	wg.Wait()
}

func TestNewWithRules(t *testing.T) {
	c := NewWithRules([]Rule{
		{Category: models.Utilities, Keywords: []string{"GAS"}},
		{Category: models.Transportation, Keywords: []string{"gas"}},
	})
	assert.Equal(t, models.Utilities, c.Categorize("gas bill"))
	assert.Equal(t, models.Other, c.Categorize("bus"))
}

func TestRules_DefaultTable(t *testing.T) {
	rules := New().Rules()
	require.Len(t, rules, 9, "every category except Other has keywords")
	assert.Equal(t, models.Food, rules[0].Category)
	assert.Equal(t, models.Travel, rules[len(rules)-1].Category)

	for _, r := range rules {
		assert.NotEqual(t, models.Other, r.Category)
		assert.NotEmpty(t, r.Keywords)
	}

	// Mutating the copy must not affect the categorizer.
	rules[0].Keywords[0] = "zzz"
	assert.Equal(t, models.Food, Categorize("food"))
}
