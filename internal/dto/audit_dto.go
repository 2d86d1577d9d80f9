package dto

import "encoding/json"

type AuditEntryItem struct {
	ID        string          `json:"id"`
	BatchID   *string         `json:"batchId,omitempty"`
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	RowIDs    json.RawMessage `json:"rowIds"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt string          `json:"createdAt"`
}

type AuditListResponse struct {
	Items []AuditEntryItem `json:"items"`
}
