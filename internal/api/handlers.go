package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/vereinskasse/internal/backup"
	"github.com/example/vereinskasse/internal/catalog"
	"github.com/example/vereinskasse/internal/events"
	"github.com/example/vereinskasse/internal/sales"
)

// Handlers serves the catalog administration endpoints.
type Handlers struct {
	catalogService *catalog.Service
}

func NewHandlers(catalogService *catalog.Service) *Handlers {
	return &Handlers{catalogService: catalogService}
}

// Category Handlers

type CategoryRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalogService.Categories())
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cat, err := h.catalogService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cat)
}

func (h *Handlers) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.catalogService.RenameCategory(r.Context(), id, req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Category updated"})
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/categories/")

	if err := h.catalogService.DeleteCategory(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Category and its products deleted"})
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalogService.Products())
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")

	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.catalogService.UpdateProduct(r.Context(), id, in); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// respondServiceError maps service errors to HTTP statuses: unknown entities
// are 404, rejected input is 400, anything else is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, events.ErrEventNotFound),
		errors.Is(err, sales.ErrTransactionNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, catalog.ErrImageTooLarge),
		errors.Is(err, events.ErrInvalidName),
		errors.Is(err, events.ErrInvalidDate),
		errors.Is(err, sales.ErrEmptyOrder),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInvalidPayment),
		errors.Is(err, sales.ErrNoActiveEvent),
		errors.Is(err, sales.ErrAlreadyCancelled),
		errors.Is(err, backup.ErrMalformedJSON),
		errors.Is(err, backup.ErrMissingField):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
