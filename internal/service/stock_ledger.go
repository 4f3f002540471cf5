package service

import (
	"errors"

	"fabrisys/internal/apierror"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockDecrement describes one outgoing stock change.
type StockDecrement struct {
	LocationID     uuid.UUID
	OrganizationID uuid.UUID
	ProductID      uuid.UUID
	Quantity       decimal.Decimal
	Kind           string
	Reason         string
	SessionID      *uuid.UUID
	SaleID         *uuid.UUID
}

// StockLedger is the only writer of stock_entries. Every decrement is applied
// atomically in storage and journaled in stock_movements within the same tx.
type StockLedger struct {
	stock         repository.StockRepository
	movements     repository.StockMovementRepository
	allowNegative bool
}

func NewStockLedger(stock repository.StockRepository, movements repository.StockMovementRepository, allowNegative bool) *StockLedger {
	return &StockLedger{stock: stock, movements: movements, allowNegative: allowNegative}
}

func (l *StockLedger) DecrementTx(tx *gorm.DB, d StockDecrement) error {
	if !d.Quantity.IsPositive() {
		return apierror.Invalid("stock decrement quantity must be greater than zero")
	}

	after, err := l.stock.DecrementTx(tx, d.LocationID, d.ProductID, d.Quantity, l.allowNegative)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound("stock entry", d.ProductID).
			WithDetail("location_id", d.LocationID.String())
	case errors.Is(err, repository.ErrInsufficientStock):
		return apierror.Conflict("insufficient stock").
			WithDetail("product_id", d.ProductID.String())
	case err != nil:
		return persistence("decrement stock", err)
	}

	mov := &model.StockMovement{
		ID:             uuid.New(),
		LocationID:     d.LocationID,
		OrganizationID: d.OrganizationID,
		ProductID:      d.ProductID,
		Kind:           d.Kind,
		Quantity:       d.Quantity.Neg(),
		Before:         after.Add(d.Quantity),
		After:          after,
		Reason:         d.Reason,
		SessionID:      d.SessionID,
		SaleID:         d.SaleID,
		CreatedAt:      now(),
	}
	if err := l.movements.CreateTx(tx, mov); err != nil {
		return persistence("record stock movement", err)
	}
	return nil
}
