/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desktop client

ROUTE GROUPS:
  /api/products/*   Catalog CRUD
  /api/checkout     Ring up a sale
  /api/orders/*     Order listing, edit, delete, date edit, export, summary
  /api/customers/*  Customer listing, history, debt logs
  /api/admin/*      Seed and reset (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080", "http://127.0.0.1:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		// Checkout
		r.Post("/checkout", h.Checkout)

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/export", h.ExportOrders)
			r.Get("/summary", h.OrderSummary)
			r.Put("/{id}", h.EditOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Put("/{id}/date", h.UpdateOrderDate)
		})

		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/logs", h.CreateDebtLog)
			r.Put("/{id}/logs/{logID}", h.UpdateDebtLog)
			r.Delete("/{id}/logs/{logID}", h.DeleteDebtLog)
		})

		// Admin routes (dev only, no auth)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/seed", h.SeedDemo)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
