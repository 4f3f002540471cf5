package repository

import (
	"context"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoyaltyRepository interface {
	// ApplyDelta adds delta points to the customer's account, creating the
	// account on first use, and journals the change. With enforceBalance the
	// change is refused with ErrInsufficientPoints when it would go below zero.
	ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int64, reason string, saleID *uuid.UUID, enforceBalance bool) (int64, error)
	FindAccount(ctx context.Context, customerID uuid.UUID) (*model.LoyaltyAccount, error)
}

type loyaltyRepo struct{ db *gorm.DB }

func NewLoyaltyRepository(db *gorm.DB) LoyaltyRepository { return &loyaltyRepo{db: db} }

func (r *loyaltyRepo) ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int64, reason string, saleID *uuid.UUID, enforceBalance bool) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct := model.LoyaltyAccount{CustomerID: customerID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&acct, "customer_id = ?", customerID).Error; err != nil {
			return translate(err)
		}

		next := acct.PointsBalance + delta
		if enforceBalance && next < 0 {
			return ErrInsufficientPoints
		}
		if err := tx.Model(&acct).Update("points_balance", next).Error; err != nil {
			return err
		}
		balance = next

		return tx.Create(&model.LoyaltyMovement{
			CustomerID: customerID,
			Points:     delta,
			Balance:    next,
			Reason:     reason,
			SaleID:     saleID,
		}).Error
	})
	return balance, err
}

func (r *loyaltyRepo) FindAccount(ctx context.Context, customerID uuid.UUID) (*model.LoyaltyAccount, error) {
	var a model.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&a, "customer_id = ?", customerID).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}
