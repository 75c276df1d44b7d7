package models

import "strings"

// Category is one of the fixed labels assigned to an expense.
type Category string

const (
	Food           Category = "Food"
	Transportation Category = "Transportation"
	Housing        Category = "Housing"
	Utilities      Category = "Utilities"
	Entertainment  Category = "Entertainment"
	Shopping       Category = "Shopping"
	Health         Category = "Health"
	Education      Category = "Education"
	Travel         Category = "Travel"
	Other          Category = "Other"
)

var categories = []Category{
	Food, Transportation, Housing, Utilities, Entertainment,
	Shopping, Health, Education, Travel, Other,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves a category name case-insensitively.
// Unknown and empty values resolve to Other.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return Other
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }
