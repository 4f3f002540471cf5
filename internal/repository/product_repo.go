package repository

import (
	"context"
	"time"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository is the read side of the catalog the till needs.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via fakes.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDsTx returns the products keyed by id; unknown ids are absent.
	FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepo) FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []model.Product
	if err := conn(r.db, tx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ── Locations ────────────────────────────────────────────────────────────────

type LocationRepository interface {
	Create(ctx context.Context, l *model.Location) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}

func (r *locationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	if err := r.db.WithContext(ctx).First(&l, "id = ? AND active = true", id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// ── Promotions ───────────────────────────────────────────────────────────────

type PromotionRepository interface {
	Create(ctx context.Context, p *model.Promotion) error
	// ListActive returns promotions whose window contains at.
	ListActive(ctx context.Context, at time.Time) ([]model.Promotion, error)
}

type promotionRepo struct{ db *gorm.DB }

func NewPromotionRepository(db *gorm.DB) PromotionRepository { return &promotionRepo{db: db} }

func (r *promotionRepo) Create(ctx context.Context, p *model.Promotion) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *promotionRepo) ListActive(ctx context.Context, at time.Time) ([]model.Promotion, error) {
	var promos []model.Promotion
	err := r.db.WithContext(ctx).
		Where("active = true").
		Where("starts_at IS NULL OR starts_at <= ?", at).
		Where("ends_at IS NULL OR ends_at > ?", at).
		Order("created_at ASC").
		Find(&promos).Error
	return promos, err
}
