package handler

import (
	"net/http"

	"fabrisys/internal/dto"
	"fabrisys/internal/middleware"
	"fabrisys/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Record godoc
// @Summary Record a sale
// @Description STANDARD sessions only. Stock is decremented immediately; loyalty is best effort.
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.RecordSaleRequest true "Sale"
// @Success 201 {object} dto.RecordSaleResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/sales [post]
func (h *SalesHandler) Record(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	in := service.RecordSaleInput{
		SessionID:          sessionID,
		PaymentMethod:      req.PaymentMethod,
		CustomerID:         optionalUUID(derefString(req.CustomerID)),
		RedemptionDiscount: req.RedemptionDiscount,
		PointsRedeemed:     req.PointsRedeemed,
		Lines:              make([]service.SaleLineInput, len(req.Lines)),
	}
	for i, l := range req.Lines {
		productID, _ := uuid.Parse(l.ProductID)
		in.Lines[i] = service.SaleLineInput{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	res, err := h.svc.RecordSale(c.Request.Context(), middleware.GetActor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.RecordSaleResponse{
		Sale:          saleToResponse(res.Sale),
		LoyaltyEarn:   sideEffectToResponse(res.LoyaltyEarn),
		LoyaltyRedeem: sideEffectToResponse(res.LoyaltyRedeem),
	})
}

// List godoc
// @Summary Sales of a session
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {array} dto.SaleResponse
// @Router /v1/sessions/{id}/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sales, err := h.svc.ListBySession(c.Request.Context(), middleware.GetActor(c), sessionID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		resp[i] = saleToResponse(&sales[i])
	}
	c.JSON(http.StatusOK, resp)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
