// Package handler exposes order creation, listing, and stats over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"restaurant-pos/backend/internal/order/domain"
	"restaurant-pos/backend/internal/order/repository"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	repo    repository.Repository
	taxRate float64
}

// NewOrderHandler returns an order handler backed by repo, applying taxRate to new orders.
func NewOrderHandler(repo repository.Repository, taxRate float64) *OrderHandler {
	return &OrderHandler{repo: repo, taxRate: taxRate}
}

// CreateRequest is the create-order request body.
type CreateRequest struct {
	Items               []domain.NewOrderItem `json:"items"`
	CustomerName        string                `json:"customer_name"`
	SpecialInstructions string                `json:"special_instructions"`
}

// Create prices and persists a new order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := domain.ValidateItems(req.Items); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.repo.Create(r.Context(), req.Items, req.CustomerName, req.SpecialInstructions, h.taxRate)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("orders: create: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
		"created_at":   order.CreatedAt,
	})
}

// ListResponse pages orders for the back office.
type ListResponse struct {
	Orders     []domain.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalOrders int  `json:"total_orders"`
	PerPage     int  `json:"per_page"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// List returns a filtered, paginated order listing.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ListFilter{
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 20),
		Search: q.Get("search"),
		Status: domain.Status(q.Get("status")),
	}
	f.MinAmount, _ = strconv.ParseFloat(q.Get("min_amount"), 64)
	f.MaxAmount, _ = strconv.ParseFloat(q.Get("max_amount"), 64)
	if t, err := time.Parse("2006-01-02", q.Get("start_date")); err == nil {
		f.StartDate = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("end_date")); err == nil {
		end := t.Add(24*time.Hour - time.Second)
		f.EndDate = &end
	}

	orders, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		log.Printf("orders: list: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	totalPages := (total + f.Limit - 1) / f.Limit
	writeJSON(w, http.StatusOK, ListResponse{
		Orders: orders,
		Pagination: Pagination{
			CurrentPage: f.Page,
			TotalPages:  totalPages,
			TotalOrders: total,
			PerPage:     f.Limit,
			HasNext:     f.Page < totalPages,
			HasPrev:     f.Page > 1,
		},
	})
}

// Get returns one order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("orders: get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateStatusRequest is the status-update request body.
type UpdateStatusRequest struct {
	Status domain.Status `json:"status"`
}

// UpdateStatus transitions an order between statuses.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !domain.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	id := mux.Vars(r)["id"]
	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		log.Printf("orders: update status %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Stats returns aggregate order figures for the dashboard.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		log.Printf("orders: stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch order stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("orders: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
