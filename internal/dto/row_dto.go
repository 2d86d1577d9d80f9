package dto

import "github.com/shopspring/decimal"

type RowItem struct {
	ID                  string           `json:"id"`
	BatchID             string           `json:"batchId"`
	SKU                 string           `json:"sku"`
	StoreCode           string           `json:"storeCode"`
	ProductName         string           `json:"productName,omitempty"`
	Categoria           string           `json:"categoria,omitempty"`
	Linea               string           `json:"linea,omitempty"`
	Marca               string           `json:"marca,omitempty"`
	CurrentPrice        *decimal.Decimal `json:"currentPrice"`
	NewPrice            decimal.Decimal  `json:"newPrice"`
	NewSpecialPrice     *decimal.Decimal `json:"newSpecialPrice,omitempty"`
	NewSpecialPriceFrom *string          `json:"newSpecialPriceFrom,omitempty"`
	NewSpecialPriceTo   *string          `json:"newSpecialPriceTo,omitempty"`
	Status              string           `json:"status"`
	Errore              *string          `json:"errore,omitempty"`
	CreatedBy           string           `json:"createdBy"`
	CreatedAt           string           `json:"createdAt"`
}

type RowListResponse struct {
	Items      []RowItem `json:"items"`
	TotalCount int64     `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
}

// EditRowRequest updates a draft row. Dates use the 2006-01-02 layout.
type EditRowRequest struct {
	NewPrice            *decimal.Decimal `json:"newPrice"`
	NewSpecialPrice     *decimal.Decimal `json:"newSpecialPrice"`
	NewSpecialPriceFrom *string          `json:"newSpecialPriceFrom"`
	NewSpecialPriceTo   *string          `json:"newSpecialPriceTo"`
}

type RowSearchRequest struct {
	SKU       string `json:"sku"`
	Categoria string `json:"categoria"`
	Linea     string `json:"linea"`
	Marca     string `json:"marca"`
	Status    string `json:"status"`
}

type RowSearchResponse struct {
	Items []RowItem `json:"items"`
}
