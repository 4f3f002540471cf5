package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	LocationID    string           `json:"location_id"    validate:"required,uuid"`
	OpeningFloat  *decimal.Decimal `json:"opening_float"  validate:"required"`
	OperatingMode string           `json:"operating_mode" validate:"omitempty,oneof=STANDARD INVENTORY_COUNT"`
	Notes         *string          `json:"notes"          validate:"omitempty,max=500"`
}

type PaymentDeclarationRequest struct {
	Cash decimal.Decimal `json:"cash" validate:"min=0"`
	Pix  decimal.Decimal `json:"pix"  validate:"min=0"`
	Card decimal.Decimal `json:"card" validate:"min=0"`
}

type CountEntry struct {
	ProductID  string          `json:"product_id"  validate:"required,uuid"`
	CountedQty decimal.Decimal `json:"counted_qty" validate:"min=0"`
}

// CloseSessionRequest needs informed_total, payments, or both (they must agree).
type CloseSessionRequest struct {
	InformedTotal *decimal.Decimal           `json:"informed_total"`
	Payments      *PaymentDeclarationRequest `json:"payments"`
	Counts        []CountEntry               `json:"counts" validate:"omitempty,dive"`
	Notes         *string                    `json:"notes"  validate:"omitempty,max=500"`
}

type SubmitCountsRequest struct {
	Counts []CountEntry `json:"counts" validate:"required,min=1,dive"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// SessionFilter is bound from query string of GET /v1/sessions.
type SessionFilter struct {
	LocationID string `form:"location_id" validate:"omitempty,uuid"`
	Status     string `form:"status"      validate:"omitempty,oneof=OPEN CLOSED"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PaymentDeclarationResponse struct {
	Cash decimal.Decimal `json:"cash"`
	Pix  decimal.Decimal `json:"pix"`
	Card decimal.Decimal `json:"card"`
}

type VarianceResponse struct {
	Amount  decimal.Decimal  `json:"amount"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Class   string           `json:"class"` // normal | warning | critical
}

type SessionResponse struct {
	ID               string                      `json:"id"`
	LocationID       string                      `json:"location_id"`
	OperatingMode    string                      `json:"operating_mode"`
	Status           string                      `json:"status"`
	OpenedBy         string                      `json:"opened_by"`
	OpenedAt         string                      `json:"opened_at"`
	OpeningFloat     decimal.Decimal             `json:"opening_float"`
	ClosedBy         *string                     `json:"closed_by"`
	ClosedAt         *string                     `json:"closed_at"`
	SystemSalesTotal decimal.Decimal             `json:"system_sales_total"`
	DiscountTotal    decimal.Decimal             `json:"discount_total"`
	InformedTotal    *decimal.Decimal            `json:"informed_total"`
	Payments         *PaymentDeclarationResponse `json:"payments,omitempty"`
	ExpectedTotal    *decimal.Decimal            `json:"expected_total"`
	Variance         *VarianceResponse           `json:"variance"`
	Notes            *string                     `json:"notes"`
}

type SideEffectResponse struct {
	OK      bool    `json:"ok"`
	Skipped bool    `json:"skipped,omitempty"`
	Error   *string `json:"error,omitempty"`
}

type CloseSessionResponse struct {
	Session          SessionResponse    `json:"session"`
	ConsolidatedSale *SaleResponse      `json:"consolidated_sale,omitempty"`
	Promotion        SideEffectResponse `json:"promotion"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CountRowResponse struct {
	ProductID       string           `json:"product_id"`
	SystemQtyAtOpen decimal.Decimal  `json:"system_qty_at_open"`
	CountedQty      *decimal.Decimal `json:"counted_qty"`
	CountedBy       *string          `json:"counted_by"`
	CountedAt       *string          `json:"counted_at"`
}

type CountSheetResponse struct {
	SessionID string             `json:"session_id"`
	Rows      []CountRowResponse `json:"rows"`
	Uncounted []string           `json:"uncounted"`
	Complete  bool               `json:"complete"`
}
