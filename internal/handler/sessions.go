package handler

import (
	"net/http"

	"fabrisys/internal/apierror"
	"fabrisys/internal/dto"
	"fabrisys/internal/middleware"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"
	"fabrisys/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionsHandler struct{ svc service.SessionService }

func NewSessionsHandler(svc service.SessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// Open godoc
// @Summary Open a till session
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions [post]
func (h *SessionsHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	locationID, _ := uuid.Parse(req.LocationID)

	session, err := h.svc.Open(c.Request.Context(), middleware.GetActor(c), service.OpenSessionInput{
		LocationID:    locationID,
		OpeningFloat:  req.OpeningFloat,
		OperatingMode: model.OperatingMode(req.OperatingMode),
		Notes:         req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionToResponse(session, nil))
}

// Close godoc
// @Summary Close a till session
// @Description Reconciles inventory-count sessions, computes the variance and closes the session.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CloseSessionRequest true "Declared amounts"
// @Success 200 {object} dto.CloseSessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/close [post]
func (h *SessionsHandler) Close(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	in := service.CloseSessionInput{
		InformedTotal: req.InformedTotal,
		Counts:        countsToMap(req.Counts),
		Notes:         req.Notes,
	}
	if req.Payments != nil {
		in.Payments = &service.PaymentDeclaration{
			Cash: req.Payments.Cash,
			Pix:  req.Payments.Pix,
			Card: req.Payments.Card,
		}
	}

	res, err := h.svc.Close(c.Request.Context(), middleware.GetActor(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}

	pct := res.VariancePercent
	resp := dto.CloseSessionResponse{
		Session:   sessionToResponse(res.Session, &pct),
		Promotion: sideEffectToResponse(res.Promotion),
	}
	if res.ConsolidatedSale != nil {
		sale := saleToResponse(res.ConsolidatedSale)
		resp.ConsolidatedSale = &sale
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Session snapshot
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id} [get]
func (h *SessionsHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := h.svc.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session, nil))
}

// Active godoc
// @Summary Open session of a location
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param location_id query string false "Location ID (defaults to the operator's)"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/active [get]
func (h *SessionsHandler) Active(c *gin.Context) {
	var locationID uuid.UUID
	if raw := c.Query("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid location_id"))
			return
		}
		locationID = id
	}
	session, err := h.svc.GetActive(c.Request.Context(), middleware.GetActor(c), locationID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(session, nil))
}

// List godoc
// @Summary Session history
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param location_id query string false "Location ID"
// @Param status query string false "OPEN | CLOSED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.SessionListResponse
// @Router /v1/sessions [get]
func (h *SessionsHandler) List(c *gin.Context) {
	var filter dto.SessionFilter
	if !bindQuery(c, &filter) {
		return
	}
	sessions, total, err := h.svc.History(c.Request.Context(), middleware.GetActor(c), repository.SessionFilter{
		LocationID: optionalUUID(filter.LocationID),
		Status:     model.SessionStatus(filter.Status),
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}

	resp := dto.SessionListResponse{
		Data:  make([]dto.SessionResponse, len(sessions)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range sessions {
		resp.Data[i] = sessionToResponse(&sessions[i], nil)
	}
	c.JSON(http.StatusOK, resp)
}

// Counts godoc
// @Summary Inventory count sheet
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.CountSheetResponse
// @Router /v1/sessions/{id}/counts [get]
func (h *SessionsHandler) Counts(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sheet, err := h.svc.CountSheet(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, countSheetToResponse(sheet))
}

// SubmitCounts godoc
// @Summary Submit physical counts
// @Description Overwriting a submitted count requires CAN_OVERRIDE_COUNT.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.SubmitCountsRequest true "Counts"
// @Success 200 {object} dto.CountSheetResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/sessions/{id}/counts [put]
func (h *SessionsHandler) SubmitCounts(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitCountsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sheet, err := h.svc.SubmitCounts(c.Request.Context(), middleware.GetActor(c), id, countsToMap(req.Counts))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, countSheetToResponse(sheet))
}
