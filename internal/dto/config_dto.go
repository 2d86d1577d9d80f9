package dto

type SaveConfigRequest struct {
	MagentoURL  string `json:"magentoUrl" validate:"required,url"`
	AccessToken string `json:"accessToken" validate:"required"`
}

// ConfigResponse masks the token: only the last four characters are returned.
type ConfigResponse struct {
	MagentoURL  string `json:"magentoUrl"`
	TokenSuffix string `json:"tokenSuffix"`
	UpdatedAt   string `json:"updatedAt"`
}

type TestConnectionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	StoresCount int    `json:"storesCount"`
}

type StoreViewItem struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
