package handler

import (
	"net/http"

	"fabrisys/internal/dto"
	"fabrisys/internal/middleware"
	"fabrisys/internal/repository"
	"fabrisys/internal/service"

	"github.com/gin-gonic/gin"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// Movements godoc
// @Summary Stock movement journal
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param location_id query string false "Location ID"
// @Param product_id query string false "Product ID"
// @Param session_id query string false "Session ID"
// @Param kind query string false "sale | inventory_close"
// @Success 200 {object} dto.StockMovementListResponse
// @Router /v1/stock/movements [get]
func (h *StockHandler) Movements(c *gin.Context) {
	var filter dto.StockMovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	movements, total, err := h.svc.ListMovements(c.Request.Context(), middleware.GetActor(c), repository.StockMovementFilter{
		LocationID: optionalUUID(filter.LocationID),
		ProductID:  optionalUUID(filter.ProductID),
		SessionID:  optionalUUID(filter.SessionID),
		Kind:       filter.Kind,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}

	resp := dto.StockMovementListResponse{
		Data:  make([]dto.StockMovementResponse, len(movements)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i, m := range movements {
		resp.Data[i] = dto.StockMovementResponse{
			ID:         m.ID.String(),
			LocationID: m.LocationID.String(),
			ProductID:  m.ProductID.String(),
			Kind:       m.Kind,
			Quantity:   m.Quantity,
			Before:     m.Before,
			After:      m.After,
			Reason:     m.Reason,
			SessionID:  uuidPtrString(m.SessionID),
			SaleID:     uuidPtrString(m.SaleID),
			CreatedAt:  formatTime(m.CreatedAt),
		}
	}
	c.JSON(http.StatusOK, resp)
}
