package repository

import (
	"context"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionFilter narrows the session history listing.
type SessionFilter struct {
	OrganizationID uuid.UUID // uuid.Nil = any
	LocationID     *uuid.UUID
	Status         model.SessionStatus
	Page           int
	Limit          int
}

type SessionRepository interface {
	// CreateTx inserts an OPEN session. Returns ErrDuplicate when the location
	// already has an OPEN session (partial unique index).
	CreateTx(tx *gorm.DB, s *model.CashSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// FindByIDForUpdateTx locks the session row for the rest of tx.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
	FindOpenByLocation(ctx context.Context, locationID uuid.UUID) (*model.CashSession, error)
	// AddSalesTotalTx atomically adds amount to system_sales_total of an OPEN
	// session. Returns ErrNotOpen when the session was closed meanwhile.
	AddSalesTotalTx(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error
	// CloseTx moves an OPEN session to CLOSED with its snapshot.
	// Returns ErrNotOpen when the row is no longer OPEN.
	CloseTx(tx *gorm.DB, s *model.CashSession) error
	List(ctx context.Context, filter SessionFilter) ([]model.CashSession, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) CreateTx(tx *gorm.DB, s *model.CashSession) error {
	return translate(conn(r.db, tx).Create(s).Error)
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := conn(r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByLocation(ctx context.Context, locationID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND status = ?", locationID, model.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) AddSalesTotalTx(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	res := conn(r.db, tx).Model(&model.CashSession{}).
		Where("id = ? AND status = ?", id, model.SessionOpen).
		Update("system_sales_total", gorm.Expr("system_sales_total + ?", amount))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotOpen
	}
	return nil
}

func (r *sessionRepo) CloseTx(tx *gorm.DB, s *model.CashSession) error {
	res := conn(r.db, tx).Model(&model.CashSession{}).
		Where("id = ? AND status = ?", s.ID, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":             model.SessionClosed,
			"closed_by":          s.ClosedBy,
			"closed_at":          s.ClosedAt,
			"system_sales_total": s.SystemSalesTotal,
			"discount_total":     s.DiscountTotal,
			"informed_total":     s.InformedTotal,
			"informed_cash":      s.InformedCash,
			"informed_pix":       s.InformedPix,
			"informed_card":      s.InformedCard,
			"expected_total":     s.ExpectedTotal,
			"variance":           s.Variance,
			"variance_class":     s.VarianceClass,
			"notes":              s.Notes,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotOpen
	}
	s.Status = model.SessionClosed
	return nil
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.CashSession, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.CashSession{})
	if filter.OrganizationID != uuid.Nil {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var sessions []model.CashSession
	err := q.Order("opened_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}
