package handler

import (
	"net/http"
	"reflect"
	"time"

	"fabrisys/internal/apierror"
	"fabrisys/internal/dto"
	"fabrisys/internal/model"
	"fabrisys/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// fail writes err with the status of its kind and attaches it for logging.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apierror.Status(err), apierror.FromError(err))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses s, which the validator has already checked.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func sessionToResponse(s *model.CashSession, pct *decimal.Decimal) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:               s.ID.String(),
		LocationID:       s.LocationID.String(),
		OperatingMode:    string(s.OperatingMode),
		Status:           string(s.Status),
		OpenedBy:         s.OpenedBy.String(),
		OpenedAt:         formatTime(s.OpenedAt),
		OpeningFloat:     s.OpeningFloat,
		ClosedBy:         uuidPtrString(s.ClosedBy),
		ClosedAt:         formatTimePtr(s.ClosedAt),
		SystemSalesTotal: s.SystemSalesTotal,
		DiscountTotal:    s.DiscountTotal,
		InformedTotal:    s.InformedTotal,
		ExpectedTotal:    s.ExpectedTotal,
		Notes:            s.Notes,
	}
	if s.InformedCash != nil && s.InformedPix != nil && s.InformedCard != nil {
		resp.Payments = &dto.PaymentDeclarationResponse{
			Cash: *s.InformedCash,
			Pix:  *s.InformedPix,
			Card: *s.InformedCard,
		}
	}
	if s.Variance != nil {
		v := &dto.VarianceResponse{Amount: *s.Variance, Percent: pct}
		if s.VarianceClass != nil {
			v.Class = *s.VarianceClass
		}
		resp.Variance = v
	}
	return resp
}

func saleToResponse(s *model.SaleTransaction) dto.SaleResponse {
	resp := dto.SaleResponse{
		ID:             s.ID.String(),
		SessionID:      s.SessionID.String(),
		Timestamp:      formatTime(s.Timestamp),
		PaymentMethod:  s.PaymentMethod,
		CustomerID:     uuidPtrString(s.CustomerID),
		GrossTotal:     s.GrossTotal,
		Discount:       s.Discount,
		NetTotal:       s.NetTotal,
		PointsRedeemed: s.PointsRedeemed,
		Consolidated:   s.Consolidated,
		Lines:          make([]dto.SaleLineResponse, len(s.Lines)),
	}
	for i, l := range s.Lines {
		resp.Lines[i] = dto.SaleLineResponse{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		}
	}
	return resp
}

func sideEffectToResponse(r service.SideEffectResult) dto.SideEffectResponse {
	resp := dto.SideEffectResponse{OK: r.OK, Skipped: r.Skipped}
	if r.Err != nil {
		msg := apierror.FromError(r.Err).Detail
		resp.Error = &msg
	}
	return resp
}

func countSheetToResponse(s *service.CountSheet) dto.CountSheetResponse {
	resp := dto.CountSheetResponse{
		SessionID: s.SessionID.String(),
		Rows:      make([]dto.CountRowResponse, len(s.Rows)),
		Uncounted: make([]string, len(s.Uncounted)),
		Complete:  len(s.Uncounted) == 0,
	}
	for i, r := range s.Rows {
		resp.Rows[i] = dto.CountRowResponse{
			ProductID:       r.ProductID.String(),
			SystemQtyAtOpen: r.SystemQtyAtOpen,
			CountedQty:      r.CountedQty,
			CountedBy:       uuidPtrString(r.CountedBy),
			CountedAt:       formatTimePtr(r.CountedAt),
		}
	}
	for i, id := range s.Uncounted {
		resp.Uncounted[i] = id.String()
	}
	return resp
}

// countsToMap converts validated count entries. Later entries win.
func countsToMap(entries []dto.CountEntry) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(entries))
	for _, e := range entries {
		if id, err := uuid.Parse(e.ProductID); err == nil {
			out[id] = e.CountedQty
		}
	}
	return out
}
