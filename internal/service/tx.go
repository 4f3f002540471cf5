package service

import (
	"context"
	"errors"
	"time"

	"fabrisys/internal/apierror"
	"fabrisys/internal/repository"

	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// persistence wraps err as a persistence failure unless it already carries a
// domain kind.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierror.As(err); ok {
		return err
	}
	return apierror.Persistence(op, err)
}

// lookup maps repository.ErrNotFound onto a not_found error for entity.
func lookup(entity string, id any, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFound(entity, id)
	}
	return persistence("load "+entity, err)
}

func now() time.Time { return time.Now().UTC() }
