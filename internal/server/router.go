// Package server wires the HTTP router: auth endpoints, session-guarded CRUD
// surfaces, and health.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurant-pos/backend/internal/auth"
	authhandler "restaurant-pos/backend/internal/auth/handler"
	orderhandler "restaurant-pos/backend/internal/order/handler"
	producthandler "restaurant-pos/backend/internal/product/handler"
)

// NewRouter constructs the application router. Auth endpoints are open (they
// do their own token work); product and order endpoints require a live
// session.
func NewRouter(
	authSvc *auth.Service,
	authH *authhandler.AuthHandler,
	productH *producthandler.ProductHandler,
	orderH *orderhandler.OrderHandler,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(WithClientIP)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.HandleFunc("/login", authH.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", authH.Logout).Methods(http.MethodPost)
	authRoutes.HandleFunc("/validate", authH.Validate).Methods(http.MethodGet)
	authRoutes.HandleFunc("/heartbeat", authH.Heartbeat).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(SessionAuthMiddleware(authSvc))
	api.HandleFunc("/products", productH.List).Methods(http.MethodGet)
	api.HandleFunc("/products", productH.Create).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", productH.Get).Methods(http.MethodGet)
	api.HandleFunc("/categories", productH.Categories).Methods(http.MethodGet)
	api.HandleFunc("/orders", orderH.Create).Methods(http.MethodPost)
	api.HandleFunc("/orders", orderH.List).Methods(http.MethodGet)
	api.HandleFunc("/orders/stats", orderH.Stats).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", orderH.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", orderH.UpdateStatus).Methods(http.MethodPatch)

	return r
}
