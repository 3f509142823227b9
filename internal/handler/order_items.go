package handler

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/database"
)

// maxBatchOrderIDs caps how many orders one order-items request may name.
const maxBatchOrderIDs = 500

// OrderItemStore defines the database methods needed by the order-items handler.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderItemStore interface {
	ListOrderItemsByOrderIDs(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
}

// OrderItemHandler serves order items for a batch of orders.
type OrderItemHandler struct {
	store OrderItemStore
}

// NewOrderItemHandler creates a new OrderItemHandler.
func NewOrderItemHandler(store OrderItemStore) *OrderItemHandler {
	return &OrderItemHandler{store: store}
}

// RegisterRoutes registers order-item endpoints on the given Chi router.
// Expected to be mounted at /api/order-items
func (h *OrderItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// List handles GET /api/order-items?orderIds=a,b. A missing or empty
// orderIds yields an empty array without touching the database.
func (h *OrderItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := parseUUIDList(r.URL.Query().Get("orderIds"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid orderIds"})
		return
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, []orderItemResponse{})
		return
	}
	if len(ids) > maxBatchOrderIDs {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many orderIds"})
		return
	}

	items, err := h.store.ListOrderItemsByOrderIDs(r.Context(), ids)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderItemResponses(items))
}

// parseUUIDList parses a comma separated list, skipping blanks and duplicates.
func parseUUIDList(s string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
