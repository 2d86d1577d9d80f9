package dto

// ImportRowError points at a spreadsheet line that was discarded.
type ImportRowError struct {
	Riga   int    `json:"riga"` // 1-based spreadsheet row number
	Errore string `json:"errore"`
}

type ImportResponse struct {
	Importate int              `json:"importate"`
	Scartate  []ImportRowError `json:"scartate"`
}
