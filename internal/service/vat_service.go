package service

import (
	"context"
	"errors"
	"fmt"

	"listino/internal/dto"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// NetFromGross scorpora l'IVA: net = gross / (1 + rate/100).
// Rate 0 is a valid passthrough. The conversion is applied exactly once, at
// import time — never to a price that is already net.
func NetFromGross(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Div(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(4)
}

type VatService interface {
	Rates(ctx context.Context) (*dto.VatRatesResponse, error)
	SaveRates(ctx context.Context, req dto.SaveVatRatesRequest) error
	// RateForStore returns the configured rate, or ErrValidation when no rate
	// exists for the store: an unset rate must never silently become 0.
	RateForStore(ctx context.Context, store string) (decimal.Decimal, error)
}

type vatService struct {
	repo repository.VatRateRepository
}

func NewVatService(repo repository.VatRateRepository) VatService {
	return &vatService{repo: repo}
}

func (s *vatService) Rates(ctx context.Context) (*dto.VatRatesResponse, error) {
	rates, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.VatRatesResponse{Rates: make([]dto.VatRateItem, 0, len(rates))}
	for _, r := range rates {
		resp.Rates = append(resp.Rates, dto.VatRateItem{
			Store:     r.StoreCode,
			StoreName: r.StoreName,
			VatRate:   r.Rate,
		})
	}
	return resp, nil
}

func (s *vatService) SaveRates(ctx context.Context, req dto.SaveVatRatesRequest) error {
	rates := make([]model.VatRate, 0, len(req.Rates))
	for _, r := range req.Rates {
		if r.VatRate.IsNegative() || r.VatRate.GreaterThan(hundred) {
			return fmt.Errorf("%w: aliquota IVA fuori intervallo per lo store %s", ErrValidation, r.Store)
		}
		rates = append(rates, model.VatRate{
			StoreCode: r.Store,
			StoreName: r.StoreName,
			Rate:      r.VatRate,
		})
	}
	return s.repo.UpsertAll(ctx, rates)
}

func (s *vatService) RateForStore(ctx context.Context, store string) (decimal.Decimal, error) {
	rate, err := s.repo.GetByStore(ctx, store)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("%w: aliquota IVA non configurata per lo store %s", ErrValidation, store)
		}
		return decimal.Zero, err
	}
	return rate.Rate, nil
}
