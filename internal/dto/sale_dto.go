package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal  `json:"quantity"   validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type RecordSaleRequest struct {
	Lines              []SaleLineRequest `json:"lines"               validate:"required,min=1,dive"`
	PaymentMethod      string            `json:"payment_method"      validate:"required,oneof=cash pix card"`
	CustomerID         *string           `json:"customer_id"         validate:"omitempty,uuid"`
	RedemptionDiscount decimal.Decimal   `json:"redemption_discount" validate:"min=0"`
	PointsRedeemed     int64             `json:"points_redeemed"     validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"session_id"`
	Timestamp      string             `json:"timestamp"`
	PaymentMethod  string             `json:"payment_method"`
	CustomerID     *string            `json:"customer_id"`
	GrossTotal     decimal.Decimal    `json:"gross_total"`
	Discount       decimal.Decimal    `json:"discount"`
	NetTotal       decimal.Decimal    `json:"net_total"`
	PointsRedeemed int64              `json:"points_redeemed"`
	Consolidated   bool               `json:"consolidated"`
	Lines          []SaleLineResponse `json:"lines"`
}

type RecordSaleResponse struct {
	Sale          SaleResponse       `json:"sale"`
	LoyaltyEarn   SideEffectResponse `json:"loyalty_earn"`
	LoyaltyRedeem SideEffectResponse `json:"loyalty_redeem"`
}
