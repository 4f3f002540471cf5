package service

import (
	"context"
	"time"

	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the discount the promotions grant on lines. Every
// promotion contributes independently and the result is their sum. The sum is
// not capped against the gross total; callers that need a cap apply it.
func ComputeDiscount(promotions []model.Promotion, lines []model.SaleLine) decimal.Decimal {
	gross := decimal.Zero
	byProduct := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		gross = gross.Add(l.Subtotal)
		key := l.ProductID.String()
		byProduct[key] = byProduct[key].Add(l.Subtotal)
	}
	if !gross.IsPositive() {
		return decimal.Zero
	}

	total := decimal.Zero
	for _, p := range promotions {
		if !p.Active || gross.LessThan(p.MinSubtotal) {
			continue
		}

		var amount decimal.Decimal
		switch p.Kind {
		case model.PromoCartPercent:
			amount = gross.Mul(p.Percent).Div(hundred)
		case model.PromoFlatCart:
			amount = p.Amount
		case model.PromoProductPercent:
			if p.ProductID == nil {
				continue
			}
			amount = byProduct[p.ProductID.String()].Mul(p.Percent).Div(hundred)
		default:
			continue
		}

		if amount.IsPositive() {
			total = total.Add(amount.Round(2))
		}
	}
	return total
}

// PromotionEngine reads the active promotions and prices a closing batch.
type PromotionEngine struct {
	repo repository.PromotionRepository
}

func NewPromotionEngine(repo repository.PromotionRepository) *PromotionEngine {
	return &PromotionEngine{repo: repo}
}

// Discount never fails the caller: a lookup failure yields a zero discount
// and a failed SideEffectResult.
func (e *PromotionEngine) Discount(ctx context.Context, at time.Time, lines []model.SaleLine) (decimal.Decimal, SideEffectResult) {
	if len(lines) == 0 {
		return decimal.Zero, sideEffectSkipped()
	}
	promos, err := e.repo.ListActive(ctx, at)
	if err != nil {
		log.Warn().Err(err).Msg("promotions: lookup failed, closing without discount")
		return decimal.Zero, sideEffectFailed(persistence("load promotions", err))
	}
	return ComputeDiscount(promos, lines), sideEffectOK()
}
