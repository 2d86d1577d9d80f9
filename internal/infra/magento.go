package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no Magento credentials have been saved yet.
var ErrNotConfigured = errors.New("magento: credenziali non configurate")

// StoreView mirrors GET /rest/V1/store/storeViews.
type StoreView struct {
	ID           int    `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	WebsiteID    int    `json:"website_id"`
	StoreGroupID int    `json:"store_group_id"`
}

// PriceUpdate is one store-scoped price write. The Magento product PUT is a
// set-operation: re-sending an already-applied update is harmless.
type PriceUpdate struct {
	SKU                 string
	StoreCode           string
	BasePrice           decimal.Decimal
	SpecialPrice        *decimal.Decimal
	NewSpecialPriceFrom *time.Time
	NewSpecialPriceTo   *time.Time
}

// MagentoClient talks to the Magento 2 REST API with a bearer token.
// Credentials are mutable at runtime (the UI lets administrators reconfigure
// the storefront without a restart), guarded by a RWMutex. Every call is
// bounded by the HTTP client timeout; a timeout surfaces as a normal error
// that the publish orchestrator records per-row.
type MagentoClient struct {
	mu         sync.RWMutex
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewMagentoClient(baseURL, token string, timeout time.Duration, cb *CircuitBreaker) *MagentoClient {
	return &MagentoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Configure swaps the credentials. Safe under concurrent publishes.
func (c *MagentoClient) Configure(baseURL, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.token = token
}

func (c *MagentoClient) credentials() (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.baseURL == "" || c.token == "" {
		return "", "", ErrNotConfigured
	}
	return c.baseURL, c.token, nil
}

// request performs one authenticated call against /rest/{scope}/V1.
func (c *MagentoClient) request(ctx context.Context, method, scope, endpoint string, payload interface{}, out interface{}) error {
	baseURL, token, err := c.credentials()
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("magento: marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	url := fmt.Sprintf("%s/rest/%s/V1%s", baseURL, scope, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("magento: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	do := func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("magento: irraggiungibile: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return errors.New("magento: token non valido o scaduto")
		case resp.StatusCode == http.StatusNotFound:
			return errors.New("magento: risorsa non trovata")
		case resp.StatusCode >= 400:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("magento: errore %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("magento: decode response: %w", err)
			}
		}
		return nil
	}

	if c.cb != nil {
		return c.cb.Execute(do)
	}
	return do()
}

// StoreViews returns all configured store views.
func (c *MagentoClient) StoreViews(ctx context.Context) ([]StoreView, error) {
	var stores []StoreView
	if err := c.request(ctx, http.MethodGet, "all", "/store/storeViews", nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// TestConnection validates the credentials and returns the store view count.
func (c *MagentoClient) TestConnection(ctx context.Context) (int, error) {
	stores, err := c.StoreViews(ctx)
	if err != nil {
		return 0, err
	}
	return len(stores), nil
}

// UpdatePrice writes one row's prices through the store-scoped product PUT.
// Base price goes in the product body; the special price and its date bounds
// travel as custom attributes, exactly as the admin UI would save them.
func (c *MagentoClient) UpdatePrice(ctx context.Context, upd PriceUpdate) error {
	product := map[string]interface{}{
		"sku":   upd.SKU,
		"price": upd.BasePrice,
	}

	var attrs []map[string]string
	if upd.SpecialPrice != nil {
		attrs = append(attrs, map[string]string{
			"attribute_code": "special_price",
			"value":          upd.SpecialPrice.String(),
		})
		if upd.NewSpecialPriceFrom != nil {
			attrs = append(attrs, map[string]string{
				"attribute_code": "special_from_date",
				"value":          upd.NewSpecialPriceFrom.Format("2006-01-02"),
			})
		}
		if upd.NewSpecialPriceTo != nil {
			attrs = append(attrs, map[string]string{
				"attribute_code": "special_to_date",
				"value":          upd.NewSpecialPriceTo.Format("2006-01-02"),
			})
		}
	}
	if len(attrs) > 0 {
		product["custom_attributes"] = attrs
	}

	scope := upd.StoreCode
	if scope == "" {
		scope = "all"
	}
	payload := map[string]interface{}{"product": product}
	return c.request(ctx, http.MethodPut, scope, "/products/"+upd.SKU, payload, nil)
}

// DeleteSpecialPrice removes a product's special price via the bulk
// special-price-delete endpoint (Magento 2.2+).
func (c *MagentoClient) DeleteSpecialPrice(ctx context.Context, storeID int, sku string) error {
	payload := map[string]interface{}{
		"prices": []map[string]interface{}{{
			"sku":        sku,
			"store_id":   storeID,
			"price":      0,
			"price_from": "",
			"price_to":   "",
		}},
	}
	return c.request(ctx, http.MethodPost, "all", "/products/special-price-delete", payload, nil)
}
