package repository

import (
	"context"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	// CreateTx inserts the sale together with its lines.
	CreateTx(tx *gorm.DB, s *model.SaleTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SaleTransaction, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SaleTransaction, error)
	// SumNetTotalTx returns Σ net_total of every sale recorded for the session.
	SumNetTotalTx(tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, error)
	HasConsolidatedTx(tx *gorm.DB, sessionID uuid.UUID) (bool, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.SaleTransaction) error {
	return translate(conn(r.db, tx).Create(s).Error)
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SaleTransaction, error) {
	var s model.SaleTransaction
	if err := r.db.WithContext(ctx).Preload("Lines").First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *saleRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SaleTransaction, error) {
	var sales []model.SaleTransaction
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) SumNetTotalTx(tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := conn(r.db, tx).Model(&model.SaleTransaction{}).
		Select("COALESCE(SUM(net_total), 0) AS total").
		Where("session_id = ?", sessionID).
		Scan(&row).Error
	return row.Total, err
}

func (r *saleRepo) HasConsolidatedTx(tx *gorm.DB, sessionID uuid.UUID) (bool, error) {
	var n int64
	err := conn(r.db, tx).Model(&model.SaleTransaction{}).
		Where("session_id = ? AND consolidated = ?", sessionID, true).
		Count(&n).Error
	return n > 0, err
}
