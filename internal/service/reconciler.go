package service

import (
	"context"
	"errors"
	"sort"

	"fabrisys/internal/apierror"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconcileResult is the outcome of an inventory-count reconciliation.
type ReconcileResult struct {
	Sale          *model.SaleTransaction
	GrossTotal    decimal.Decimal
	DiscountTotal decimal.Decimal
	Promotion     SideEffectResult
}

// Reconciler turns the count sheet of an INVENTORY_COUNT session into the
// single consolidated sale and the matching stock decrements.
type Reconciler struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	stock    *StockLedger
	promos   *PromotionEngine
}

func NewReconciler(sales repository.SaleRepository, products repository.ProductRepository, stock *StockLedger, promos *PromotionEngine) *Reconciler {
	return &Reconciler{sales: sales, products: products, stock: stock, promos: promos}
}

// SoldQuantity is max(0, atOpen - counted). A product without a count is
// assumed unsold.
func SoldQuantity(atOpen decimal.Decimal, counted *decimal.Decimal) decimal.Decimal {
	if counted == nil {
		return decimal.Zero
	}
	sold := atOpen.Sub(*counted)
	if sold.IsNegative() {
		return decimal.Zero
	}
	return sold
}

// ReconcileTx must run inside the closing transaction with the session row
// locked. sheet carries the snapshot and the merged counts.
func (r *Reconciler) ReconcileTx(ctx context.Context, tx *gorm.DB, session *model.CashSession, closedBy uuid.UUID, sheet []model.InventoryCount) (*ReconcileResult, error) {
	if !session.IsOpen() {
		return nil, apierror.Conflict("session is not open").WithDetail("session_id", session.ID.String())
	}
	if session.OperatingMode != model.ModeInventoryCount {
		return nil, apierror.Conflict("session is not in inventory-count mode")
	}
	done, err := r.sales.HasConsolidatedTx(tx, session.ID)
	if err != nil {
		return nil, persistence("check consolidated sale", err)
	}
	if done {
		return nil, apierror.Conflict("session was already reconciled")
	}

	sold := make(map[uuid.UUID]decimal.Decimal)
	ids := make([]uuid.UUID, 0, len(sheet))
	for _, row := range sheet {
		q := SoldQuantity(row.SystemQtyAtOpen, row.CountedQty)
		if q.IsPositive() {
			sold[row.ProductID] = q
			ids = append(ids, row.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	catalog, err := r.products.FindByIDsTx(tx, ids)
	if err != nil {
		return nil, persistence("load products", err)
	}

	sale := &model.SaleTransaction{
		ID:            uuid.New(),
		SessionID:     session.ID,
		LocationID:    session.LocationID,
		RecordedBy:    closedBy,
		Timestamp:     now(),
		PaymentMethod: model.PaymentConsolidated,
		Consolidated:  true,
	}

	gross := decimal.Zero
	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return nil, apierror.NotFound("product", id)
		}
		subtotal := model.LineSubtotal(sold[id], p.SalePrice)
		gross = gross.Add(subtotal)
		sale.Lines = append(sale.Lines, model.SaleLine{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: id,
			Quantity:  sold[id],
			UnitPrice: p.SalePrice,
			Subtotal:  subtotal,
		})
	}

	discount, promo := r.promos.Discount(ctx, sale.Timestamp, sale.Lines)
	if discount.GreaterThan(gross) {
		log.Warn().
			Str("session_id", session.ID.String()).
			Str("discount", discount.StringFixed(2)).
			Str("gross", gross.StringFixed(2)).
			Msg("reconcile: discount capped at gross total")
		discount = gross
	}

	sale.GrossTotal = gross
	sale.Discount = discount
	sale.NetTotal = gross.Sub(discount)

	if err := r.sales.CreateTx(tx, sale); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Conflict("session was already reconciled")
		}
		return nil, persistence("record consolidated sale", err)
	}

	for _, l := range sale.Lines {
		err := r.stock.DecrementTx(tx, StockDecrement{
			LocationID:     session.LocationID,
			OrganizationID: session.OrganizationID,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			Kind:           model.MovementInventoryClose,
			Reason:         "inventory count close",
			SessionID:      &session.ID,
			SaleID:         &sale.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	return &ReconcileResult{
		Sale:          sale,
		GrossTotal:    gross,
		DiscountTotal: discount,
		Promotion:     promo,
	}, nil
}
