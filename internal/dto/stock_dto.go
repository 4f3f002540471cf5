package dto

import "github.com/shopspring/decimal"

// StockMovementFilter is bound from query string of GET /v1/stock/movements.
type StockMovementFilter struct {
	LocationID string `form:"location_id" validate:"omitempty,uuid"`
	ProductID  string `form:"product_id"  validate:"omitempty,uuid"`
	SessionID  string `form:"session_id"  validate:"omitempty,uuid"`
	Kind       string `form:"kind"        validate:"omitempty,oneof=sale inventory_close"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type StockMovementResponse struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	ProductID  string          `json:"product_id"`
	Kind       string          `json:"kind"`
	Quantity   decimal.Decimal `json:"quantity"`
	Before     decimal.Decimal `json:"before"`
	After      decimal.Decimal `json:"after"`
	Reason     string          `json:"reason"`
	SessionID  *string         `json:"session_id"`
	SaleID     *string         `json:"sale_id"`
	CreatedAt  string          `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
