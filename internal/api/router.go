/**
 * @description
 * This file sets up the HTTP router using the go-chi/chi router. It defines the
 * catalog and service-request routes, applies middleware for request ids, logging,
 * CORS, metrics and authentication, and maps the routes to their handlers.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the marketplace routes.
func NewRouter(h *Handler, auth *Authenticator, metrics *Metrics, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if metrics != nil {
		r.Use(metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Catalog reads are public; a bearer token only widens payment-method visibility for admins.
	r.Route("/services", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			r.Get("/", h.handleListServices)
			r.Get("/{serviceId}", h.handleGetService)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Required)
			r.Post("/", h.handleCreateService)
			r.Put("/{serviceId}", h.handleUpdateService)
			r.Patch("/{serviceId}", h.handleUpdateService)
			r.Delete("/{serviceId}", h.handleDeleteService)
			r.Patch("/{serviceId}/payment-methods/{methodType}", h.handleSetPaymentMethod)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Required)

		r.Get("/me", h.handleMe)

		r.Route("/service-requests", func(r chi.Router) {
			r.Get("/", h.handleListRequests)
			r.Post("/", h.handleCreateRequest)
			r.Get("/stats", h.handleStats)
			r.Get("/{requestId}", h.handleGetRequest)
			r.Patch("/{requestId}", h.handleUpdateRequest)
			r.Delete("/{requestId}", h.handleDeleteRequest)
		})
	})

	return r
}
