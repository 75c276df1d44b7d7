package handlers

import "net/http"

// Register adds every page, auth and API route to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /healthz", h.Health)

	// Auth routes
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.SignUp)
	mux.HandleFunc("GET /logout", h.Logout)

	// Pages
	mux.Handle("GET /dashboard", h.AuthMiddleware(http.HandlerFunc(h.Dashboard)))
	mux.Handle("GET /stats", h.AuthMiddleware(http.HandlerFunc(h.Statistics)))

	// JSON API
	mux.Handle("GET /api/expenses", h.AuthMiddleware(http.HandlerFunc(h.ListExpensesAPI)))
	mux.Handle("POST /api/expenses", h.AuthMiddleware(http.HandlerFunc(h.CreateExpenseAPI)))
	mux.Handle("GET /api/expenses/summary", h.AuthMiddleware(http.HandlerFunc(h.SummaryAPI)))
	mux.Handle("GET /api/expenses/insights", h.AuthMiddleware(http.HandlerFunc(h.InsightsAPI)))
	mux.Handle("PUT /api/expenses/{id}", h.AuthMiddleware(http.HandlerFunc(h.UpdateExpenseAPI)))
	mux.Handle("DELETE /api/expenses/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteExpenseAPI)))
}
