package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/vibedrinks/api/internal/database"
	"github.com/vibedrinks/api/internal/enum"
	"github.com/vibedrinks/api/internal/events"
	"github.com/vibedrinks/api/internal/middleware"
	"github.com/vibedrinks/api/internal/orderflow"
	"github.com/vibedrinks/api/internal/service"
)

const (
	defaultOrderListLimit = 500
	maxOrderListLimit     = 1000
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrderIDs(ctx context.Context, orderIds []uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	store     OrderStore
	publisher events.Publisher
}

// NewOrderHandler creates a new OrderHandler. Every committed mutation is
// reported to publisher.
func NewOrderHandler(svc OrderServicer, store OrderStore, publisher events.Publisher) *OrderHandler {
	if publisher == nil {
		publisher = events.Discard
	}
	return &OrderHandler{svc: svc, store: store, publisher: publisher}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside an authenticated subrouter at /api/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	kitchen := middleware.KitchenStaff

	r.Post("/", h.Create)
	r.With(kitchen).Get("/", h.List)
	r.With(kitchen).Get("/{orderId}", h.Get)
	r.With(middleware.RequireRole(enum.UserRoleKitchen, enum.UserRoleAdmin, enum.UserRoleCourier)).
		Patch("/{orderId}/status", h.UpdateStatus)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{orderId}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType string                   `json:"orderType"`
	Notes     string                   `json:"notes"`
	Items     []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"userId"`
	OrderType   string              `json:"orderType"`
	Status      string              `json:"status"`
	Subtotal    string              `json:"subtotal"`
	Notes       *string             `json:"notes"`
	CreatedAt   time.Time           `json:"createdAt"`
	AcceptedAt  *time.Time          `json:"acceptedAt"`
	PreparingAt *time.Time          `json:"preparingAt"`
	ReadyAt     *time.Time          `json:"readyAt"`
	DeliveredAt *time.Time          `json:"deliveredAt"`
	CancelledAt *time.Time          `json:"cancelledAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Items       []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	Subtotal    string    `json:"subtotal"`
	CreatedAt   time.Time `json:"createdAt"`
}

// --- Handlers ---

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderType is required"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "productId is required")})
			return
		}
		items[i] = service.CreateOrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:    claims.UserID,
		OrderType: req.OrderType,
		Notes:     req.Notes,
		Items:     items,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publisher.Publish(orderflow.OrderCreated(result.Order.ID))

	resp := dbOrderToResponse(result.Order)
	resp.Items = toOrderItemResponses(result.Items)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/orders. Orders come back oldest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultOrderListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}

	params := database.ListOrdersParams{Limit: int32(limit)}
	if s := r.URL.Query().Get("status"); s != "" {
		if !orderflow.Status(s).Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/orders/{orderId}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrderIDs(r.Context(), []uuid.UUID{orderID})
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = toOrderItemResponses(items)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/orders/{orderId}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	next := orderflow.Status(req.Status)
	if !next.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	from := orderflow.Status(current.Status)
	if err := orderflow.ValidateTransition(from, next); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	if msg := transitionForbidden(claims.Role, orderflow.Type(current.OrderType), next); msg != "" {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": msg})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		Status:        string(next),
		ID:            orderID,
		CurrentStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publisher.Publish(orderflow.StatusChanged(updated.ID, orderflow.Status(updated.Status)))
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Cancel handles DELETE /api/orders/{orderId}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for cancel: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	switch orderflow.Status(current.Status) {
	case orderflow.StatusDelivered:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot cancel a delivered order"})
		return
	case orderflow.StatusCancelled:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already cancelled"})
		return
	}

	cancelled, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		Status:        string(orderflow.StatusCancelled),
		ID:            orderID,
		CurrentStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: cancel order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publisher.Publish(orderflow.StatusChanged(cancelled.ID, orderflow.StatusCancelled))
	writeJSON(w, http.StatusOK, dbOrderToResponse(cancelled))
}

// --- Helpers ---

// transitionForbidden returns a non-empty reason when role may not move an
// order of type t to next. The transition itself is assumed legal.
func transitionForbidden(role string, t orderflow.Type, next orderflow.Status) string {
	switch {
	case next == orderflow.StatusCancelled && role != enum.UserRoleAdmin:
		return "only admins can cancel orders"
	case role == enum.UserRoleCourier && (next != orderflow.StatusDelivered || !t.IsDelivery()):
		return "couriers can only hand off delivery orders"
	case next == orderflow.StatusDelivered && t.IsDelivery() && role == enum.UserRoleKitchen:
		return "delivery orders are handed off by a courier"
	}
	return ""
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrProductInactive) ||
		errors.Is(err, service.ErrInvalidProductID)
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		OrderType:   o.OrderType,
		Status:      o.Status,
		Subtotal:    numericToString(o.Subtotal),
		CreatedAt:   o.CreatedAt,
		AcceptedAt:  timestamptzPtr(o.AcceptedAt),
		PreparingAt: timestamptzPtr(o.PreparingAt),
		ReadyAt:     timestamptzPtr(o.ReadyAt),
		DeliveredAt: timestamptzPtr(o.DeliveredAt),
		CancelledAt: timestamptzPtr(o.CancelledAt),
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:          item.ID,
		OrderID:     item.OrderID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   numericToString(item.UnitPrice),
		Subtotal:    numericToString(item.Subtotal),
		CreatedAt:   item.CreatedAt,
	}
}

func toOrderItemResponses(items []database.OrderItem) []orderItemResponse {
	resp := make([]orderItemResponse, len(items))
	for i, item := range items {
		resp[i] = dbOrderItemToResponse(item)
	}
	return resp
}
