package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *MagentoClient {
	return NewMagentoClient(url, "test-token", 5*time.Second, nil)
}

func TestUpdatePriceRequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	special := decimal.RequireFromString("7.50")
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	err := newTestClient(srv.URL).UpdatePrice(context.Background(), PriceUpdate{
		SKU:                 "SKU-1",
		StoreCode:           "it",
		BasePrice:           decimal.RequireFromString("9.90"),
		SpecialPrice:        &special,
		NewSpecialPriceFrom: &from,
	})
	require.NoError(t, err)

	assert.Equal(t, "/rest/it/V1/products/SKU-1", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)

	product := gotBody["product"].(map[string]interface{})
	assert.Equal(t, "SKU-1", product["sku"])

	attrs := product["custom_attributes"].([]interface{})
	codes := map[string]string{}
	for _, a := range attrs {
		attr := a.(map[string]interface{})
		codes[attr["attribute_code"].(string)] = attr["value"].(string)
	}
	assert.Equal(t, "7.5", codes["special_price"])
	assert.Equal(t, "2026-10-01", codes["special_from_date"])
	_, hasTo := codes["special_to_date"]
	assert.False(t, hasTo, "unset date bound must not be sent")
}

func TestUpdatePriceWithoutStoreScopesAll(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdatePrice(context.Background(), PriceUpdate{
		SKU:       "SKU-1",
		BasePrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "/rest/all/V1/products/SKU-1", gotPath)
}

func TestErrorStatusMapping(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	client := newTestClient(srv.URL)
	upd := PriceUpdate{SKU: "SKU-1", BasePrice: decimal.NewFromInt(10)}

	err := client.UpdatePrice(context.Background(), upd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token non valido")

	status = http.StatusNotFound
	err = client.UpdatePrice(context.Background(), upd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non trovata")
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewMagentoClient("", "", 5*time.Second, nil)
	err := client.UpdatePrice(context.Background(), PriceUpdate{SKU: "SKU-1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigureSwapsCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewMagentoClient("", "", 5*time.Second, nil)
	client.Configure(srv.URL, "fresh-token")

	_, err := client.StoreViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh-token", gotAuth)
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})
	client := NewMagentoClient(srv.URL, "t", 5*time.Second, cb)
	upd := PriceUpdate{SKU: "SKU-1", BasePrice: decimal.NewFromInt(10)}

	for i := 0; i < 3; i++ {
		require.Error(t, client.UpdatePrice(context.Background(), upd))
	}
	err := client.UpdatePrice(context.Background(), upd)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
