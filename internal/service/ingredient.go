package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vibedrinks/api/internal/database"
	"github.com/vibedrinks/api/internal/orderflow"
)

// Errors returned by the ingredient service.
var (
	ErrOrderItemNotFound  = errors.New("order item not found")
	ErrIngredientNotFound = errors.New("ingredient product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderClosed        = errors.New("order is delivered or cancelled")
)

// PostgreSQL error codes the ingredient service translates.
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IngredientStore defines the DB methods needed to record consumption.
// Satisfied by *database.Queries (and its WithTx variant).
type IngredientStore interface {
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	LockOrderStatus(ctx context.Context, id uuid.UUID) (string, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrderItemIngredient(ctx context.Context, arg database.CreateOrderItemIngredientParams) (database.OrderItemIngredient, error)
	DecrementProductStock(ctx context.Context, arg database.DecrementProductStockParams) (int32, error)
}

// NewIngredientStore creates an IngredientStore from a DBTX (pool or tx).
type NewIngredientStore func(db database.DBTX) IngredientStore

// RecordIngredientRequest describes one consumed ingredient.
type RecordIngredientRequest struct {
	OrderID             uuid.UUID
	OrderItemID         uuid.UUID
	IngredientProductID uuid.UUID
	Quantity            int32
	ShouldDeductStock   bool
}

// IngredientService records ingredient consumption against order items.
type IngredientService struct {
	pool     TxBeginner
	newStore NewIngredientStore
}

// NewIngredientService creates a new IngredientService.
func NewIngredientService(pool TxBeginner, newStore NewIngredientStore) *IngredientService {
	return &IngredientService{pool: pool, newStore: newStore}
}

// RecordIngredient inserts the consumption and, when requested, decrements
// the ingredient's stock in the same transaction. Stock never goes negative:
// a decrement larger than the remaining stock fails with ErrInsufficientStock
// and nothing is written. Delivered and cancelled orders take no more
// consumption (ErrOrderClosed).
func (s *IngredientService) RecordIngredient(ctx context.Context, req RecordIngredientRequest) (database.OrderItemIngredient, error) {
	if req.Quantity <= 0 {
		return database.OrderItemIngredient{}, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderItemIngredient{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetOrderItem(ctx, database.GetOrderItemParams{
		ID:      req.OrderItemID,
		OrderID: req.OrderID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItemIngredient{}, ErrOrderItemNotFound
		}
		return database.OrderItemIngredient{}, fmt.Errorf("get order item: %w", err)
	}

	// Locked so a concurrent cancel waits for this transaction
	status, err := store.LockOrderStatus(ctx, req.OrderID)
	if err != nil {
		return database.OrderItemIngredient{}, fmt.Errorf("lock order: %w", err)
	}
	if orderflow.Status(status).Terminal() {
		return database.OrderItemIngredient{}, ErrOrderClosed
	}

	product, err := store.GetProduct(ctx, req.IngredientProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItemIngredient{}, ErrIngredientNotFound
		}
		return database.OrderItemIngredient{}, fmt.Errorf("get ingredient product: %w", err)
	}

	consumption, err := store.CreateOrderItemIngredient(ctx, database.CreateOrderItemIngredientParams{
		OrderItemID:         req.OrderItemID,
		IngredientProductID: product.ID,
		Quantity:            req.Quantity,
		ShouldDeductStock:   req.ShouldDeductStock,
	})
	if err != nil {
		return database.OrderItemIngredient{}, translatePgError(fmt.Errorf("create consumption: %w", err))
	}

	if req.ShouldDeductStock {
		if _, err := store.DecrementProductStock(ctx, database.DecrementProductStockParams{
			Quantity: req.Quantity,
			ID:       product.ID,
		}); err != nil {
			// The guarded UPDATE matches no row when stock < quantity
			if errors.Is(err, pgx.ErrNoRows) {
				return database.OrderItemIngredient{}, ErrInsufficientStock
			}
			return database.OrderItemIngredient{}, translatePgError(fmt.Errorf("decrement stock: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderItemIngredient{}, fmt.Errorf("commit tx: %w", err)
	}

	return consumption, nil
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrInsufficientStock, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrIngredientNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
