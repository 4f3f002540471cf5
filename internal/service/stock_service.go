package service

import (
	"context"

	"fabrisys/internal/model"
	"fabrisys/internal/repository"
)

// StockService exposes the stock movement journal.
type StockService interface {
	ListMovements(ctx context.Context, actor ActorContext, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error)
}

type stockService struct {
	movements repository.StockMovementRepository
}

func NewStockService(movements repository.StockMovementRepository) StockService {
	return &stockService{movements: movements}
}

// ListMovements is scoped to the actor's organization, and to the actor's
// location unless the actor holds CAN_OPEN_ANY_LOCATION.
func (s *stockService) ListMovements(ctx context.Context, actor ActorContext, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	filter.OrganizationID = actor.OrganizationID
	if filter.LocationID == nil && !actor.Can(CapOpenAnyLocation) {
		loc := actor.LocationID
		filter.LocationID = &loc
	}
	if filter.LocationID != nil {
		if err := actor.authorizeLocation(*filter.LocationID); err != nil {
			return nil, 0, err
		}
	}
	movements, total, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, 0, persistence("list stock movements", err)
	}
	return movements, total, nil
}
