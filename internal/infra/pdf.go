package infra

// pdf.go — publish report generation using go-pdf/fpdf.
// Renders the outcome of the latest publish of a batch as a printable A4
// document: batch header, actor and timestamp, then a per-SKU outcome table.

import (
	"bytes"
	"fmt"

	"listino/internal/model"

	"github.com/go-pdf/fpdf"
)

// PublishReportLine is one SKU outcome in the report table.
type PublishReportLine struct {
	SKU      string
	Status   string
	NewPrice string
	Errore   string
}

// GeneratePublishReport renders the report in memory and returns the PDF bytes.
func GeneratePublishReport(batch *model.Batch, entry *model.AuditEntry, esito string, lines []PublishReportLine) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Rapporto di Pubblicazione", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Batch: %s  —  Store: %s", batch.Nome, batch.StoreCode), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Eseguito da: %s  —  %s", entry.Actor, entry.CreatedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Esito: "+esito, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Outcome table ────────────────────────────────────────────────────────
	col1 := contentW * 0.28 // sku
	col2 := contentW * 0.16 // status
	col3 := contentW * 0.16 // new price
	col4 := contentW * 0.40 // error

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Stato", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Nuovo Prezzo", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Errore", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range lines {
		errText := l.Errore
		if len(errText) > 70 {
			errText = errText[:67] + "..."
		}
		pdf.CellFormat(col1, 5, l.SKU, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, l.Status, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, l.NewPrice, "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, errText, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render report: %w", err)
	}
	return buf.Bytes(), nil
}
