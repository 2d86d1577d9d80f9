package dto

type CreateBatchRequest struct {
	Store string `json:"store" validate:"required"`
	Nome  string `json:"nome" validate:"required,max=120"`
	Note  string `json:"note" validate:"max=1000"`
}

type BatchResponse struct {
	BatchID   string `json:"batchId"`
	Store     string `json:"store"`
	Nome      string `json:"nome"`
	Note      string `json:"note,omitempty"`
	Stato     string `json:"stato"`
	Righe     int64  `json:"righe"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
}

type LookupResponse struct {
	Categorie []string `json:"categorie"`
	Linee     []string `json:"linee"`
	Marche    []string `json:"marche"`
}
