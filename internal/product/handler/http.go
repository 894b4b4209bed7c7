// Package handler exposes the product catalog over HTTP.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"restaurant-pos/backend/internal/product/domain"
	"restaurant-pos/backend/internal/product/repository"
)

// ProductHandler handles product and category endpoints.
type ProductHandler struct {
	repo repository.Repository
}

// NewProductHandler returns a product handler backed by repo.
func NewProductHandler(repo repository.Repository) *ProductHandler {
	return &ProductHandler{repo: repo}
}

// List returns all active products with category names.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListActive(r.Context())
	if err != nil {
		log.Printf("products: list: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// Get returns one product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("products: get %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateRequest is the create-product request body.
type CreateRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	CategoryID    int     `json:"category_id"`
	SKU           string  `json:"sku"`
	StockQuantity int     `json:"stock_quantity"`
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	product := &domain.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		CategoryID:    req.CategoryID,
		SKU:           req.SKU,
		StockQuantity: req.StockQuantity,
	}
	if err := product.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.Create(r.Context(), product); err != nil {
		log.Printf("products: create: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// Categories returns all active categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		log.Printf("products: categories: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("products: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
