package dto

import "github.com/shopspring/decimal"

type VatRateItem struct {
	Store     string          `json:"store" validate:"required"`
	StoreName string          `json:"storeName"`
	VatRate   decimal.Decimal `json:"vatRate" validate:"min=0,max=100"`
}

type VatRatesResponse struct {
	Rates []VatRateItem `json:"rates"`
}

type SaveVatRatesRequest struct {
	Rates []VatRateItem `json:"rates" validate:"required,min=1,dive"`
}
