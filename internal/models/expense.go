package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to expenses submitted without a currency code.
const DefaultCurrency = "PKR"

// Expense represents a financial expense record owned by a single user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Category    Category        `json:"category"`
	RawCategory string          `json:"rawCategory,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ExpenseInput carries the fields a user submits for a new expense.
type ExpenseInput struct {
	Amount      *decimal.Decimal
	Currency    string
	Description string
	Date        *time.Time
	RawCategory string
}

// ExpensePatch is a partial update. Nil fields are left untouched.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Date        *time.Time
	RawCategory *string
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
