// internal/httpapi/router.go
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the API routes.
func NewRouter(h *Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/books/search", h.handleSearch)
		r.Post("/books", h.handleAddBook)
		r.Get("/books/{isbn}", h.handleGetBook)

		r.Post("/borrowers", h.handleRegisterBorrower)
		r.Get("/borrowers/{cardID}", h.handleGetBorrower)
		r.Get("/borrowers/{cardID}/loans", h.handleLoanHistory)
		r.Post("/borrowers/{cardID}/payments", h.handlePayFine)

		r.Post("/loans", h.handleCheckout)
		r.Post("/loans/{loanID}/return", h.handleReturn)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
