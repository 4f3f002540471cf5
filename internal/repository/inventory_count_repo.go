package repository

import (
	"context"
	"time"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryCountRepository stores the count sheet of INVENTORY_COUNT sessions.
type InventoryCountRepository interface {
	CreateBatchTx(tx *gorm.DB, rows []model.InventoryCount) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.InventoryCount, error)
	ListBySessionTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.InventoryCount, error)
	// SetCountedTx records a physical count. Returns ErrNotFound when the
	// product is not on the session's sheet.
	SetCountedTx(tx *gorm.DB, sessionID, productID uuid.UUID, qty decimal.Decimal, by uuid.UUID, at time.Time) error
	DeleteBySessionTx(tx *gorm.DB, sessionID uuid.UUID) error
}

type inventoryCountRepo struct{ db *gorm.DB }

func NewInventoryCountRepository(db *gorm.DB) InventoryCountRepository {
	return &inventoryCountRepo{db: db}
}

func (r *inventoryCountRepo) CreateBatchTx(tx *gorm.DB, rows []model.InventoryCount) error {
	if len(rows) == 0 {
		return nil
	}
	return conn(r.db, tx).CreateInBatches(rows, 200).Error
}

func (r *inventoryCountRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.InventoryCount, error) {
	return r.ListBySessionTx(r.db.WithContext(ctx), sessionID)
}

func (r *inventoryCountRepo) ListBySessionTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.InventoryCount, error) {
	var rows []model.InventoryCount
	err := conn(r.db, tx).Where("session_id = ?", sessionID).Order("product_id").Find(&rows).Error
	return rows, err
}

func (r *inventoryCountRepo) SetCountedTx(tx *gorm.DB, sessionID, productID uuid.UUID, qty decimal.Decimal, by uuid.UUID, at time.Time) error {
	res := conn(r.db, tx).Model(&model.InventoryCount{}).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Updates(map[string]interface{}{
			"counted_qty": qty,
			"counted_by":  by,
			"counted_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryCountRepo) DeleteBySessionTx(tx *gorm.DB, sessionID uuid.UUID) error {
	return conn(r.db, tx).Where("session_id = ?", sessionID).Delete(&model.InventoryCount{}).Error
}
