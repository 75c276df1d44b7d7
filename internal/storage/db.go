package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a row does not exist or is owned by
	// another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer, and every connection to ":memory:"
	// would otherwise get its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

const expenseColumns = "id, user_id, amount, currency, description, date, category, raw_category, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	var e models.Expense
	var category string
	if err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Description,
		&e.Date, &category, &e.RawCategory, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.Category = models.ParseCategory(category)
	if !models.Category(category).Valid() {
		slog.Warn("Stored category is not canonical", "expense_id", e.ID, "category", category, "resolved", e.Category)
	}
	return &e, nil
}

// CreateExpense inserts a new expense and fills in its ID and CreatedAt.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	// Dates are stored in UTC so rows compare and scan uniformly.
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Date = e.Date.UTC()
	e.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount, currency, description, date, category, raw_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount, e.Currency, e.Description, e.Date, string(e.Category), e.RawCategory, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// GetExpense retrieves a single expense owned by ownerID.
func (db *DB) GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?",
		id, ownerID,
	)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// UpdateExpense overwrites the mutable fields of an expense. The update only
// applies when e.UserID owns the row.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	e.Date = e.Date.UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, currency = ?, description = ?, date = ?, category = ?, raw_category = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount, e.Currency, e.Description, e.Date, string(e.Category), e.RawCategory, e.ID, e.UserID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteExpense removes an expense owned by ownerID.
func (db *DB) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
		id, ownerID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpensesByOwner retrieves every expense of a user, ordered by date descending.
func (db *DB) ListExpensesByOwner(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

// CreateUser creates a new user with the given email, name and password hash.
func (db *DB) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, created_at) VALUES (?, ?, ?, ?)",
		email, name, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "email = ?", email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at FROM users WHERE "+where,
		arg,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
