package service

import (
	"context"
	"errors"

	"fabrisys/internal/apierror"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleLineInput is one checkout line. A nil UnitPrice takes the catalog price.
type SaleLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

type RecordSaleInput struct {
	SessionID     uuid.UUID
	Lines         []SaleLineInput
	PaymentMethod string
	CustomerID    *uuid.UUID
	// RedemptionDiscount is the money value of the redeemed points, computed
	// by the caller.
	RedemptionDiscount decimal.Decimal
	PointsRedeemed     int64
}

type RecordSaleResult struct {
	Sale          *model.SaleTransaction
	LoyaltyEarn   SideEffectResult
	LoyaltyRedeem SideEffectResult
}

type SaleService interface {
	RecordSale(ctx context.Context, actor ActorContext, in RecordSaleInput) (*RecordSaleResult, error)
	ListBySession(ctx context.Context, actor ActorContext, sessionID uuid.UUID) ([]model.SaleTransaction, error)
}

type saleService struct {
	sessions repository.SessionRepository
	sales    repository.SaleRepository
	products repository.ProductRepository
	stock    *StockLedger
	loyalty  *LoyaltyLedger
	notifier Notifier
}

func NewSaleService(
	sessions repository.SessionRepository,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	stock *StockLedger,
	loyalty *LoyaltyLedger,
	notifier Notifier,
) SaleService {
	return &saleService{
		sessions: sessions,
		sales:    sales,
		products: products,
		stock:    stock,
		loyalty:  loyalty,
		notifier: notifier,
	}
}

// ── RecordSale ────────────────────────────────────────────────────────────────
// STANDARD mode only.
//   1. Validate input and resolve prices (nothing persisted yet)
//   2. BEGIN TX: create sale+lines, decrement stock per line, add net to session
//   3. COMMIT
//   4. Loyalty earn/redeem, best effort

func (s *saleService) RecordSale(ctx context.Context, actor ActorContext, in RecordSaleInput) (*RecordSaleResult, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByID(ctx, in.SessionID)
	if err != nil {
		return nil, lookup("session", in.SessionID, err)
	}
	if err := actor.authorizeSession(session); err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, apierror.Conflict("session is not open").WithDetail("session_id", session.ID.String())
	}
	if session.OperatingMode != model.ModeStandard {
		return nil, apierror.Conflict("sales are recorded at close in inventory-count mode").
			WithDetail("session_id", session.ID.String())
	}

	lines, gross, err := s.priceLines(in.Lines)
	if err != nil {
		return nil, err
	}
	discount := in.RedemptionDiscount
	if discount.GreaterThan(gross) {
		return nil, apierror.Invalid("redemption discount exceeds the sale total")
	}

	sale := &model.SaleTransaction{
		ID:             uuid.New(),
		SessionID:      session.ID,
		LocationID:     session.LocationID,
		RecordedBy:     actor.OperatorID,
		Timestamp:      now(),
		PaymentMethod:  in.PaymentMethod,
		CustomerID:     in.CustomerID,
		GrossTotal:     gross,
		Discount:       discount,
		NetTotal:       gross.Sub(discount),
		PointsRedeemed: in.PointsRedeemed,
		Lines:          lines,
	}
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
	}

	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sales.CreateTx(tx, sale); err != nil {
			return persistence("record sale", err)
		}
		for _, l := range sale.Lines {
			err := s.stock.DecrementTx(tx, StockDecrement{
				LocationID:     sale.LocationID,
				OrganizationID: session.OrganizationID,
				ProductID:      l.ProductID,
				Quantity:       l.Quantity,
				Kind:           model.MovementSale,
				Reason:         "checkout",
				SessionID:      &sale.SessionID,
				SaleID:         &sale.ID,
			})
			if err != nil {
				return err
			}
		}
		err := s.sessions.AddSalesTotalTx(tx, session.ID, sale.NetTotal)
		if errors.Is(err, repository.ErrNotOpen) {
			return apierror.Conflict("session was closed while the sale was being recorded")
		}
		return persistence("update session total", err)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("session_id", session.ID.String()).
		Str("net_total", sale.NetTotal.StringFixed(2)).
		Msg("sale recorded")

	res := &RecordSaleResult{
		Sale:          sale,
		LoyaltyEarn:   sideEffectSkipped(),
		LoyaltyRedeem: sideEffectSkipped(),
	}
	if in.CustomerID != nil {
		res.LoyaltyEarn = s.loyalty.Earn(ctx, *in.CustomerID, sale.NetTotal.Floor().IntPart(), &sale.ID)
		publishSideEffectFailure(ctx, s.notifier, session, actor, &sale.ID, "loyalty_earn", res.LoyaltyEarn)
		if in.PointsRedeemed > 0 {
			res.LoyaltyRedeem = s.loyalty.Redeem(ctx, *in.CustomerID, in.PointsRedeemed, &sale.ID)
			publishSideEffectFailure(ctx, s.notifier, session, actor, &sale.ID, "loyalty_redeem", res.LoyaltyRedeem)
		}
	}
	return res, nil
}

func validateSaleInput(in RecordSaleInput) error {
	if len(in.Lines) == 0 {
		return apierror.Invalid("a sale needs at least one line")
	}
	for i, l := range in.Lines {
		if !l.Quantity.IsPositive() {
			return apierror.Invalidf("line %d: quantity must be greater than zero", i+1)
		}
		if exceedsScale(l.Quantity, quantityScale) {
			return apierror.Invalidf("line %d: quantity has more than 3 decimal places", i+1)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return apierror.Invalidf("line %d: unit price must not be negative", i+1)
		}
		if l.UnitPrice != nil && exceedsScale(*l.UnitPrice, moneyScale) {
			return apierror.Invalidf("line %d: unit price has more than 2 decimal places", i+1)
		}
	}
	switch in.PaymentMethod {
	case model.PaymentCash, model.PaymentPix, model.PaymentCard:
	default:
		return apierror.Invalidf("unsupported payment method %q", in.PaymentMethod)
	}
	if in.RedemptionDiscount.IsNegative() {
		return apierror.Invalid("redemption discount must not be negative")
	}
	if exceedsScale(in.RedemptionDiscount, moneyScale) {
		return apierror.Invalid("redemption discount has more than 2 decimal places")
	}
	if in.PointsRedeemed < 0 {
		return apierror.Invalid("redeemed points must not be negative")
	}
	if (in.PointsRedeemed > 0 || in.RedemptionDiscount.IsPositive()) && in.CustomerID == nil {
		return apierror.Invalid("a redemption needs a customer")
	}
	return nil
}

// priceLines resolves every line against the catalog and returns the lines
// with their subtotals and the gross total.
func (s *saleService) priceLines(in []SaleLineInput) ([]model.SaleLine, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.ProductID)
	}
	catalog, err := s.products.FindByIDsTx(nil, ids)
	if err != nil {
		return nil, decimal.Zero, persistence("load products", err)
	}

	gross := decimal.Zero
	lines := make([]model.SaleLine, 0, len(in))
	for _, l := range in {
		p, ok := catalog[l.ProductID]
		if !ok || !p.Active {
			return nil, decimal.Zero, apierror.NotFound("product", l.ProductID)
		}
		price := p.SalePrice
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		subtotal := model.LineSubtotal(l.Quantity, price)
		gross = gross.Add(subtotal)
		lines = append(lines, model.SaleLine{
			ID:        uuid.New(),
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Subtotal:  subtotal,
		})
	}
	return lines, gross, nil
}

// ── ListBySession ─────────────────────────────────────────────────────────────

func (s *saleService) ListBySession(ctx context.Context, actor ActorContext, sessionID uuid.UUID) ([]model.SaleTransaction, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookup("session", sessionID, err)
	}
	if err := actor.authorizeSession(session); err != nil {
		return nil, err
	}
	sales, err := s.sales.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, persistence("list sales", err)
	}
	return sales, nil
}
