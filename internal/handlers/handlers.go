package handlers

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/models"
	"spendwise/internal/service"
	"spendwise/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last when not configured (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	svc             *service.ExpenseService
	templateDir     string
	secureCookie    bool
	sessionDuration time.Duration
}

// NewHandlers creates a new Handlers instance. A zero sessionDuration uses
// DefaultSessionDuration.
func NewHandlers(db *storage.DB, svc *service.ExpenseService, templateDir string, secureCookie bool, sessionDuration time.Duration) *Handlers {
	if sessionDuration <= 0 {
		sessionDuration = DefaultSessionDuration
	}
	return &Handlers{
		db:              db,
		svc:             svc,
		templateDir:     templateDir,
		secureCookie:    secureCookie,
		sessionDuration: sessionDuration,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
// Requests under /api/ get a 401 JSON error instead of a redirect.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.unauthorized(w, r)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				slog.ErrorContext(r.Context(), "Failed to validate session", "error", err)
			}
			h.clearSessionCookie(w)
			h.unauthorized(w, r)
			return
		}

		// Rolling session: renew if past halfway point
		now := time.Now()
		if sessionInfo.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			newExpiresAt := now.Add(h.sessionDuration)
			if err := h.db.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			} else {
				// Keep serving with the current session
				slog.WarnContext(r.Context(), "Failed to renew session", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// currentUser returns the user of a valid session cookie, or nil.
func (h *Handlers) currentUser(r *http.Request) *models.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.db.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// Index renders the landing page, or sends signed-in users to their dashboard.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "index.html", nil)
}

// AuthViewModel holds data for the login and register pages.
type AuthViewModel struct {
	Error string
	Email string
	Name  string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "login.html", AuthViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, http.StatusBadRequest, "login.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	email := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	vm := AuthViewModel{Email: email}

	if email == "" || password == "" {
		vm.Error = "Email and password are required"
		h.renderStatus(w, r, http.StatusBadRequest, "login.html", vm)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), email)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(r.Context(), "Failed to look up user", "error", err)
		}
		vm.Error = "Invalid email or password"
		h.renderStatus(w, r, http.StatusUnauthorized, "login.html", vm)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		vm.Error = "An error occurred. Please try again."
		h.renderStatus(w, r, http.StatusInternalServerError, "login.html", vm)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, "register.html", AuthViewModel{})
}

// SignUp creates an account from the registration form and logs it in.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, http.StatusBadRequest, "register.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	email := normalizeEmail(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")
	vm := AuthViewModel{Email: email, Name: name}

	switch {
	case email == "" || password == "":
		vm.Error = "Email and password are required"
	case !validEmail(email):
		vm.Error = "Please enter a valid email address"
	}
	if vm.Error != "" {
		h.renderStatus(w, r, http.StatusBadRequest, "register.html", vm)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		vm.Error = "Error during registration"
		h.renderStatus(w, r, http.StatusInternalServerError, "register.html", vm)
		return
	}

	user, err := h.db.CreateUser(r.Context(), email, name, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			vm.Error = "User already exists with this email"
			h.renderStatus(w, r, http.StatusBadRequest, "register.html", vm)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create user", "error", err)
		vm.Error = "Error during registration"
		h.renderStatus(w, r, http.StatusInternalServerError, "register.html", vm)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		vm.Error = "Error logging in after registration"
		h.renderStatus(w, r, http.StatusInternalServerError, "register.html", vm)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Health reports whether the database is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate session token", "error", err)
		return err
	}

	expiresAt := time.Now().Add(h.sessionDuration)
	if err := h.db.CreateSession(r.Context(), token, user.ID, expiresAt); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", "error", err)
		return err
	}

	h.setSessionCookie(w, token)
	return nil
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, http.StatusOK, viewName, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		slog.ErrorContext(r.Context(), "Template error", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "view", viewName, "error", err)
	}
}
