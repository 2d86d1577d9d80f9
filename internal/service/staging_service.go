package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"listino/internal/dto"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const stagingSheet = "Listino"

// stagingHeaders is the fixed column layout of the import template. Prices in
// the spreadsheet are gross (VAT included); the import converts them to net
// using the store's configured rate.
var stagingHeaders = []string{
	"SKU",
	"Nome Prodotto",
	"Categoria",
	"Linea",
	"Marca",
	"Prezzo Attuale",
	"Nuovo Prezzo (IVA inclusa)",
	"Nuovo Prezzo Scontato (IVA inclusa)",
	"Sconto Dal",
	"Sconto Al",
}

// StagingService handles the Excel surface: the empty template, the import
// into the staging area, and the export of a batch back to a spreadsheet.
type StagingService interface {
	Template() ([]byte, error)
	Import(ctx context.Context, store, actor string, r io.Reader) (*dto.ImportResponse, error)
	Export(ctx context.Context, batchID uuid.UUID) ([]byte, error)
}

type stagingService struct {
	staging repository.StagingRepository
	rows    repository.RowRepository
	batches repository.BatchRepository
	vat     VatService
}

func NewStagingService(
	staging repository.StagingRepository,
	rows repository.RowRepository,
	batches repository.BatchRepository,
	vat VatService,
) StagingService {
	return &stagingService{staging: staging, rows: rows, batches: batches, vat: vat}
}

func (s *stagingService) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), stagingSheet)
	for i, h := range stagingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(stagingSheet, cell, h); err != nil {
			return nil, fmt.Errorf("excel: write header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(stagingHeaders), 1)
		_ = f.SetCellStyle(stagingSheet, "A1", last, style)
	}
	_ = f.SetColWidth(stagingSheet, "A", "E", 22)
	_ = f.SetColWidth(stagingSheet, "F", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel: render template: %w", err)
	}
	return buf.Bytes(), nil
}

// Import parses the spreadsheet and replaces the store's staging area. Rows
// with problems end up in Scartate with their spreadsheet line number; valid
// rows are imported regardless. An import with zero valid rows is refused.
func (s *stagingService) Import(ctx context.Context, store, actor string, r io.Reader) (*dto.ImportResponse, error) {
	rate, err := s.vat.RateForStore(ctx, store)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: file Excel non leggibile", ErrValidation)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: foglio non leggibile", ErrValidation)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("%w: il file non contiene righe oltre l'intestazione", ErrValidation)
	}

	resp := &dto.ImportResponse{Scartate: []dto.ImportRowError{}}
	staged := make([]*model.StagingRow, 0, len(cells)-1)

	for i, line := range cells[1:] {
		rowNum := i + 2 // 1-based, after the header
		row, perr := s.parseLine(line, store, actor, rate)
		if perr != nil {
			resp.Scartate = append(resp.Scartate, dto.ImportRowError{Riga: rowNum, Errore: perr.Error()})
			continue
		}
		staged = append(staged, row)
	}

	if len(staged) == 0 {
		return nil, fmt.Errorf("%w: nessuna riga valida nel file", ErrValidation)
	}

	if err := s.staging.ReplaceForStore(ctx, store, staged); err != nil {
		return nil, err
	}
	resp.Importate = len(staged)

	log.Info().
		Str("store", store).
		Str("actor", actor).
		Int("importate", resp.Importate).
		Int("scartate", len(resp.Scartate)).
		Msg("staging import completed")
	return resp, nil
}

// parseLine maps one spreadsheet row onto a staging row, converting gross
// prices to net with the store rate.
func (s *stagingService) parseLine(line []string, store, actor string, rate decimal.Decimal) (*model.StagingRow, error) {
	cell := func(i int) string {
		if i < len(line) {
			return strings.TrimSpace(line[i])
		}
		return ""
	}

	sku := cell(0)
	if sku == "" {
		return nil, errors.New("SKU mancante")
	}

	newGross, err := parsePrice(cell(6))
	if err != nil || newGross == nil {
		return nil, errors.New("nuovo prezzo mancante o non valido")
	}
	if newGross.IsNegative() {
		return nil, errors.New("il nuovo prezzo non può essere negativo")
	}

	row := &model.StagingRow{
		StoreCode:   store,
		SKU:         sku,
		ProductName: cell(1),
		Categoria:   cell(2),
		Linea:       cell(3),
		Marca:       cell(4),
		NewPrice:    NetFromGross(*newGross, rate),
		CreatedBy:   actor,
	}

	if current, err := parsePrice(cell(5)); err == nil && current != nil {
		row.CurrentPrice = current
	}

	specialGross, err := parsePrice(cell(7))
	if err != nil {
		return nil, errors.New("prezzo scontato non valido")
	}
	if specialGross != nil {
		if specialGross.IsNegative() {
			return nil, errors.New("il prezzo scontato non può essere negativo")
		}
		net := NetFromGross(*specialGross, rate)
		row.NewSpecialPrice = &net
	}

	from, err := parseCellDate(cell(8))
	if err != nil {
		return nil, errors.New("data inizio sconto non valida")
	}
	to, err := parseCellDate(cell(9))
	if err != nil {
		return nil, errors.New("data fine sconto non valida")
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, errors.New("la data di inizio sconto è successiva a quella di fine")
	}
	row.NewSpecialPriceFrom = from
	row.NewSpecialPriceTo = to

	return row, nil
}

// Export writes the batch's rows back out in the template layout, net prices
// as stored, plus a trailing status column.
func (s *stagingService) Export(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: batch %s", ErrNotFound, batchID)
		}
		return nil, err
	}
	rows, err := s.rows.ListByBatch(ctx, batchID, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), stagingSheet)

	headers := append(append([]string{}, stagingHeaders...), "Stato", "Errore")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(stagingSheet, cell, h)
	}

	for i, r := range rows {
		values := []interface{}{
			r.SKU, r.ProductName, r.Categoria, r.Linea, r.Marca,
			decimalCell(r.CurrentPrice),
			r.NewPrice.StringFixed(4),
			decimalCell(r.NewSpecialPrice),
			dateCell(r.NewSpecialPriceFrom),
			dateCell(r.NewSpecialPriceTo),
			r.Status,
			stringCell(r.Errore),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(stagingSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel: render export: %w", err)
	}
	return buf.Bytes(), nil
}

// parsePrice accepts both 1234.56 and the Italian 1.234,56 spelling.
// An empty cell is nil, not an error.
func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseCellDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{dateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("data non valida: %s", s)
}

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(4)
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func stringCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
