// Package categorizer assigns a category to an expense from keywords found in
// its description.
//
// Rules are evaluated in order and the first keyword found anywhere in the
// lower-cased description decides the category. There is no scoring: a
// keyword listed under an earlier category always beats the same keyword
// under a later one ("gas" is Transportation, not Utilities).
package categorizer

import (
	"strings"

	"spendwise/internal/models"
)

// Rule maps an ordered list of keyword substrings to a category.
type Rule struct {
	Category models.Category
	Keywords []string
}

var defaultRules = []Rule{
	{models.Food, []string{"food", "grocery", "restaurant", "lunch", "dinner", "breakfast", "meal", "pizza", "burger", "coffee", "cafe", "eat"}},
	{models.Transportation, []string{"gas", "fuel", "car", "bus", "train", "taxi", "uber", "lyft", "transport", "fare", "ticket", "subway", "metro", "commute"}},
	{models.Housing, []string{"rent", "mortgage", "house", "apartment", "property", "housing", "maintenance", "repair", "furniture"}},
	{models.Utilities, []string{"electricity", "water", "gas", "internet", "phone", "bill", "utility", "cable", "subscription"}},
	{models.Entertainment, []string{"movie", "game", "concert", "show", "entertainment", "theater", "park", "music", "streaming", "netflix", "disney", "hulu"}},
	{models.Shopping, []string{"clothes", "shoes", "accessory", "shopping", "mall", "store", "amazon", "online", "retail"}},
	{models.Health, []string{"doctor", "medical", "medicine", "drug", "prescription", "health", "hospital", "clinic", "dental", "healthcare", "gym", "fitness"}},
	{models.Education, []string{"book", "course", "class", "tuition", "school", "college", "university", "education", "learning", "training", "tutorial"}},
	{models.Travel, []string{"hotel", "flight", "vacation", "travel", "trip", "booking", "airbnb", "holiday", "tourism"}},
}

// Categorizer performs deterministic keyword categorization.
// It holds no mutable state and is safe for concurrent use.
type Categorizer struct {
	rules []Rule
}

// New returns a categorizer with the built-in keyword table.
func New() *Categorizer {
	return &Categorizer{rules: defaultRules}
}

// NewWithRules returns a categorizer that evaluates rules in the given order.
// Keywords are matched lower-cased.
func NewWithRules(rules []Rule) *Categorizer {
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		normalized[i] = Rule{Category: r.Category, Keywords: kws}
	}
	return &Categorizer{rules: normalized}
}

// Categorize returns the category for description, or models.Other when no
// keyword matches.
func (c *Categorizer) Categorize(description string) models.Category {
	cat, _ := c.Match(description)
	return cat
}

// Match is Categorize that also reports the keyword that decided the result.
// The keyword is empty when the result is models.Other by default.
func (c *Categorizer) Match(description string) (models.Category, string) {
	desc := strings.ToLower(description)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Category, kw
			}
		}
	}
	return models.Other, ""
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Categorizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

var std = New()

// Categorize categorizes description with the built-in keyword table.
func Categorize(description string) models.Category {
	return std.Categorize(description)
}
