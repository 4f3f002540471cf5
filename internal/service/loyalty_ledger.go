package service

import (
	"context"
	"errors"

	"fabrisys/internal/apierror"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	loyaltyEarn   = "earn"
	loyaltyRedeem = "redeem"
)

// LoyaltyLedger applies point deltas. Both operations are best effort: a
// failure is logged and reported in the SideEffectResult, never returned.
type LoyaltyLedger struct {
	repo           repository.LoyaltyRepository
	enforceBalance bool
}

func NewLoyaltyLedger(repo repository.LoyaltyRepository, enforceBalance bool) *LoyaltyLedger {
	return &LoyaltyLedger{repo: repo, enforceBalance: enforceBalance}
}

func (l *LoyaltyLedger) Earn(ctx context.Context, customerID uuid.UUID, points int64, saleID *uuid.UUID) SideEffectResult {
	return l.apply(ctx, customerID, points, loyaltyEarn, saleID)
}

// Redeem subtracts points. The balance is only checked when enforcement is on.
func (l *LoyaltyLedger) Redeem(ctx context.Context, customerID uuid.UUID, points int64, saleID *uuid.UUID) SideEffectResult {
	return l.apply(ctx, customerID, points, loyaltyRedeem, saleID)
}

func (l *LoyaltyLedger) apply(ctx context.Context, customerID uuid.UUID, points int64, reason string, saleID *uuid.UUID) SideEffectResult {
	if points < 0 {
		err := apierror.Invalidf("loyalty %s points must not be negative", reason)
		log.Warn().Err(err).Str("customer_id", customerID.String()).Msg("loyalty: rejected")
		return sideEffectFailed(err)
	}
	if points == 0 {
		return sideEffectSkipped()
	}

	delta := points
	if reason == loyaltyRedeem {
		delta = -points
	}

	balance, err := l.repo.ApplyDelta(ctx, customerID, delta, reason, saleID, l.enforceBalance)
	if err != nil {
		ev := log.Warn().Err(err).
			Str("customer_id", customerID.String()).
			Str("reason", reason).
			Int64("points", points)
		if saleID != nil {
			ev = ev.Str("sale_id", saleID.String())
		}
		ev.Msg("loyalty: update failed, sale kept")
		if errors.Is(err, repository.ErrInsufficientPoints) {
			return sideEffectFailed(apierror.Conflict("insufficient loyalty points").
				WithDetail("customer_id", customerID.String()))
		}
		return sideEffectFailed(persistence("apply loyalty points", err))
	}

	log.Debug().Str("customer_id", customerID.String()).
		Str("reason", reason).Int64("balance", balance).Msg("loyalty: applied")
	return sideEffectOK()
}
