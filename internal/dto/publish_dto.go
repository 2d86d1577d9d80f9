package dto

// Publish aggregate outcomes.
const (
	EsitoSuccess = "success"
	EsitoPartial = "partial"
	EsitoError   = "error"
)

type ApproveRequest struct {
	// RowIDs restricts the approval to a subset; empty means every draft row
	// of the batch.
	RowIDs []string `json:"rowIds"`
}

type RejectRequest struct {
	RowIDs []string `json:"rowIds" validate:"required,min=1"`
	Reason string   `json:"reason" validate:"required"`
}

// GateResponse is the all-or-nothing outcome of an approve/reject call.
type GateResponse struct {
	Success   bool     `json:"success"`
	FailedIDs []string `json:"failedIds,omitempty"`
}

type PublishError struct {
	SKU    string `json:"sku"`
	Errore string `json:"errore"`
}

type PublishResponse struct {
	Esito  string         `json:"esito"`
	Errori []PublishError `json:"errori"`
}
