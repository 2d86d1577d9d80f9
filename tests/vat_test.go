package tests

import (
	"context"
	"testing"

	"listino/internal/dto"
	"listino/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetFromGross(t *testing.T) {
	cases := []struct {
		name  string
		gross string
		rate  string
		want  string
	}{
		{"standard italian rate", "122", "22", "100"},
		{"reduced rate", "110", "10", "100"},
		{"rate zero is passthrough", "99.99", "0", "99.99"},
		{"rounds to four decimals", "100", "22", "81.9672"},
		{"small price", "1.22", "22", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gross := decimal.RequireFromString(tc.gross)
			rate := decimal.RequireFromString(tc.rate)
			got := service.NetFromGross(gross, rate)
			want := decimal.RequireFromString(tc.want)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestNetFromGrossWithinTolerance(t *testing.T) {
	gross := decimal.RequireFromString("49.90")
	net := service.NetFromGross(gross, decimal.NewFromInt(22))
	back := net.Mul(decimal.RequireFromString("1.22"))
	diff := back.Sub(gross).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")),
		"round-trip drift %s exceeds a cent", diff)
}

func TestSaveRatesRejectsOutOfRange(t *testing.T) {
	svc := service.NewVatService(newStubVatRepo())

	err := svc.SaveRates(context.Background(), dto.SaveVatRatesRequest{
		Rates: []dto.VatRateItem{{Store: "it", VatRate: decimal.NewFromInt(101)}},
	})
	assert.ErrorIs(t, err, service.ErrValidation)

	err = svc.SaveRates(context.Background(), dto.SaveVatRatesRequest{
		Rates: []dto.VatRateItem{{Store: "it", VatRate: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestRateForStore(t *testing.T) {
	repo := newStubVatRepo()
	svc := service.NewVatService(repo)

	require.NoError(t, svc.SaveRates(context.Background(), dto.SaveVatRatesRequest{
		Rates: []dto.VatRateItem{
			{Store: "it", StoreName: "Italia", VatRate: decimal.NewFromInt(22)},
			{Store: "ch", StoreName: "Svizzera", VatRate: decimal.RequireFromString("8.1")},
		},
	}))

	rate, err := svc.RateForStore(context.Background(), "it")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(22)))

	// A missing rate must be an explicit error, never a silent zero.
	_, err = svc.RateForStore(context.Background(), "de")
	assert.ErrorIs(t, err, service.ErrValidation)
}
