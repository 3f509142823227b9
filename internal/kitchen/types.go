package kitchen

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibedrinks/api/internal/orderflow"
)

// Order is an order as the API returns it.
type Order struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	OrderType   orderflow.Type   `json:"orderType"`
	Status      orderflow.Status `json:"status"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Notes       *string          `json:"notes"`
	CreatedAt   time.Time        `json:"createdAt"`
	AcceptedAt  *time.Time       `json:"acceptedAt"`
	PreparingAt *time.Time       `json:"preparingAt"`
	ReadyAt     *time.Time       `json:"readyAt"`
	DeliveredAt *time.Time       `json:"deliveredAt"`
	CancelledAt *time.Time       `json:"cancelledAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Product struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID uuid.UUID       `json:"categoryId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int32           `json:"stock"`
	IsActive   bool            `json:"isActive"`
}

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Whatsapp string    `json:"whatsapp"`
	Role     string    `json:"role"`
}

// Consumption is the body of an ingredient record request.
type Consumption struct {
	IngredientProductID uuid.UUID `json:"ingredientProductId"`
	Quantity            int32     `json:"quantity"`
	ShouldDeductStock   bool      `json:"shouldDeductStock"`
}
