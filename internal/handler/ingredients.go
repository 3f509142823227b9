package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vibedrinks/api/internal/database"
	"github.com/vibedrinks/api/internal/middleware"
	"github.com/vibedrinks/api/internal/service"
)

// IngredientServicer defines the service methods needed by ingredient handlers.
// Satisfied by *service.IngredientService; narrow interface for testability.
type IngredientServicer interface {
	RecordIngredient(ctx context.Context, req service.RecordIngredientRequest) (database.OrderItemIngredient, error)
}

// IngredientStore defines the database methods needed to list consumption.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	ListOrderItemIngredients(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemIngredient, error)
}

// IngredientHandler records and lists ingredients consumed by order items.
type IngredientHandler struct {
	svc   IngredientServicer
	store IngredientStore
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(svc IngredientServicer, store IngredientStore) *IngredientHandler {
	return &IngredientHandler{svc: svc, store: store}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
// Expected to be mounted inside the /api/orders subrouter.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.KitchenStaff)
		r.Post("/{orderId}/items/{itemId}/ingredients", h.Create)
		r.Get("/{orderId}/items/{itemId}/ingredients", h.List)
	})
}

type recordIngredientRequest struct {
	IngredientProductID string `json:"ingredientProductId"`
	Quantity            int32  `json:"quantity"`
	// Omitted means deduct
	ShouldDeductStock   *bool  `json:"shouldDeductStock"`
}

type ingredientResponse struct {
	ID                  uuid.UUID `json:"id"`
	OrderItemID         uuid.UUID `json:"orderItemId"`
	IngredientProductID uuid.UUID `json:"ingredientProductId"`
	Quantity            int32     `json:"quantity"`
	ShouldDeductStock   bool      `json:"shouldDeductStock"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toIngredientResponse(c database.OrderItemIngredient) ingredientResponse {
	return ingredientResponse{
		ID:                  c.ID,
		OrderItemID:         c.OrderItemID,
		IngredientProductID: c.IngredientProductID,
		Quantity:            c.Quantity,
		ShouldDeductStock:   c.ShouldDeductStock,
		CreatedAt:           c.CreatedAt,
	}
}

// Create handles POST /api/orders/{orderId}/items/{itemId}/ingredients.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := parseOrderItemPath(w, r)
	if !ok {
		return
	}

	var req recordIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredientProductId"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}
	deduct := true
	if req.ShouldDeductStock != nil {
		deduct = *req.ShouldDeductStock
	}

	consumption, err := h.svc.RecordIngredient(r.Context(), service.RecordIngredientRequest{
		OrderID:             orderID,
		OrderItemID:         itemID,
		IngredientProductID: ingredientID,
		Quantity:            req.Quantity,
		ShouldDeductStock:   deduct,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order item not found"})
		case errors.Is(err, service.ErrIngredientNotFound):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ingredient product not found"})
		case errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient stock"})
		case errors.Is(err, service.ErrOrderClosed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidQuantity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: record ingredient: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toIngredientResponse(consumption))
}

// List handles GET /api/orders/{orderId}/items/{itemId}/ingredients.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, itemID, ok := parseOrderItemPath(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetOrderItem(r.Context(), database.GetOrderItemParams{ID: itemID, OrderID: orderID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order item not found"})
			return
		}
		log.Printf("ERROR: get order item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	consumptions, err := h.store.ListOrderItemIngredients(r.Context(), itemID)
	if err != nil {
		log.Printf("ERROR: list order item ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(consumptions))
	for i, c := range consumptions {
		resp[i] = toIngredientResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseOrderItemPath(w http.ResponseWriter, r *http.Request) (orderID, itemID uuid.UUID, ok bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err = uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return orderID, itemID, true
}
