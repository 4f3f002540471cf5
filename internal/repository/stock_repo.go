package repository

import (
	"context"
	"time"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockRepository interface {
	// DecrementTx subtracts qty from the entry in a single UPDATE and returns
	// the quantity after the change. The row lock taken by the UPDATE
	// serializes concurrent decrements of the same (location, product).
	// With allowNegative false the update only applies while enough stock
	// remains; otherwise ErrInsufficientStock is returned.
	DecrementTx(tx *gorm.DB, locationID, productID uuid.UUID, qty decimal.Decimal, allowNegative bool) (decimal.Decimal, error)
	Find(ctx context.Context, locationID, productID uuid.UUID) (*model.StockEntry, error)
	ListByLocationTx(tx *gorm.DB, locationID uuid.UUID) ([]model.StockEntry, error)
	Upsert(ctx context.Context, e *model.StockEntry) error
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DecrementTx(tx *gorm.DB, locationID, productID uuid.UUID, qty decimal.Decimal, allowNegative bool) (decimal.Decimal, error) {
	db := conn(r.db, tx)

	query := `UPDATE stock_entries
		SET quantity_on_hand = quantity_on_hand - ?, updated_at = ?
		WHERE location_id = ? AND product_id = ?`
	args := []interface{}{qty, time.Now().UTC(), locationID, productID}
	if !allowNegative {
		query += ` AND quantity_on_hand >= ?`
		args = append(args, qty)
	}
	query += ` RETURNING quantity_on_hand`

	var row struct{ QuantityOnHand decimal.Decimal }
	res := db.Raw(query, args...).Scan(&row)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		if allowNegative {
			return decimal.Zero, ErrNotFound
		}
		var n int64
		if err := db.Model(&model.StockEntry{}).
			Where("location_id = ? AND product_id = ?", locationID, productID).
			Count(&n).Error; err != nil {
			return decimal.Zero, err
		}
		if n == 0 {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, ErrInsufficientStock
	}
	return row.QuantityOnHand, nil
}

func (r *stockRepo) Find(ctx context.Context, locationID, productID uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).
		First(&e, "location_id = ? AND product_id = ?", locationID, productID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *stockRepo) ListByLocationTx(tx *gorm.DB, locationID uuid.UUID) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := conn(r.db, tx).Where("location_id = ?", locationID).
		Order("product_id").
		Find(&entries).Error
	return entries, err
}

// Upsert provisions or overwrites an entry. Used by seeding only; the till
// itself never creates stock rows.
func (r *stockRepo) Upsert(ctx context.Context, e *model.StockEntry) error {
	return r.db.WithContext(ctx).Save(e).Error
}
