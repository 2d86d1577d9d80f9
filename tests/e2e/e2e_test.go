//go:build integration

package e2e

// e2e_test.go
// End-to-end tests against real Postgres + Redis via testcontainers, with a
// local HTTP fake standing in for the Magento REST API.
// Run with: go test -tags integration ./tests/e2e/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"listino/internal/config"
	"listino/internal/infra"
	"listino/internal/model"
	"listino/internal/repository"
	"listino/internal/router"
	"listino/internal/service"
	"listino/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/xuri/excelize/v2"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// xlsxUpload builds a multipart body with a spreadsheet in the template layout.
func xlsxUpload(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	header := []any{
		"SKU", "Nome Prodotto", "Categoria", "Linea", "Marca",
		"Prezzo Attuale", "Nuovo Prezzo (IVA inclusa)",
		"Nuovo Prezzo Scontato (IVA inclusa)", "Sconto Dal", "Sconto Al",
	}
	require.NoError(t, f.SetSheetRow(name, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &row))
	}
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "listino.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

// fakeMagento is an in-process Magento REST API double. failSKUs get a 400.
type fakeMagento struct {
	mu       sync.Mutex
	puts     map[string]int // sku → call count
	failSKUs map[string]bool
}

func newFakeMagento() *fakeMagento {
	return &fakeMagento{puts: make(map[string]int), failSKUs: make(map[string]bool)}
}

func (m *fakeMagento) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/store/storeViews") {
			_, _ = w.Write([]byte(`[{"id":1,"code":"it","name":"Italia","website_id":1,"store_group_id":1}]`))
			return
		}
		if r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/products/") {
			parts := strings.Split(r.URL.Path, "/")
			sku := parts[len(parts)-1]
			m.mu.Lock()
			m.puts[sku]++
			fail := m.failSKUs[sku]
			m.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Invalid product data"}`))
				return
			}
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}

func (m *fakeMagento) putCount(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[sku]
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server  *httptest.Server
	token   string // amministratore JWT
	magento *fakeMagento
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("listino_test"),
		tcPostgres.WithUsername("listino"),
		tcPostgres.WithPassword("listino"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
		MagentoTimeoutSecs: 5,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Magento double
	fake := newFakeMagento()
	magentoSrv := httptest.NewServer(fake.handler())
	t.Cleanup(magentoSrv.Close)
	magento := infra.NewMagentoClient(magentoSrv.URL, "e2e-token",
		time.Duration(cfg.MagentoTimeoutSecs)*time.Second, nil)

	// Seed admin through the real service so the hash is genuine
	authSvc := service.NewAuthService(repository.NewUserRepository(db),
		cfg.JWTSecret, cfg.JWTExpirationHours, cfg.JWTRefreshHours)
	_, err = authSvc.CreateUser(ctx, "admin@e2e.test", "Admin E2E", "listino2026", model.RolAmministratore)
	require.NoError(t, err)

	r := router.New(cfg, db, rdb, magento, worker.NewDispatcher(rdb))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/api/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "listino2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	// Configure the VAT rate used by every import
	vatResp := do(t, srv, "PUT", "/api/settings/vat",
		jsonBody(t, map[string]any{
			"rates": []map[string]any{{"store": "it", "storeName": "Italia", "vatRate": 22}},
		}),
		loginBody.AccessToken,
	)
	require.Equal(t, http.StatusNoContent, vatResp.StatusCode)

	return &testEnv{server: srv, token: loginBody.AccessToken, magento: fake}
}

func (env *testEnv) importSheet(t *testing.T, rows [][]any) {
	t.Helper()
	body, contentType := xlsxUpload(t, rows)
	req, err := http.NewRequest("POST", env.server.URL+"/api/staging/import?store=it", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (env *testEnv) createAndInitBatch(t *testing.T, nome string) string {
	t.Helper()
	createResp := do(t, env.server, "POST", "/api/batches",
		jsonBody(t, map[string]string{"store": "it", "nome": nome}), env.token)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	var batch struct {
		BatchID string `json:"batchId"`
	}
	decodeJSON(t, createResp, &batch)

	initResp := do(t, env.server, "POST", "/api/batches/"+batch.BatchID+"/init", jsonBody(t, struct{}{}), env.token)
	require.Equal(t, http.StatusOK, initResp.StatusCode)
	initResp.Body.Close()
	return batch.BatchID
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full happy path: import → batch → approve → publish → audit.
func TestE2E_FullPublishCycle(t *testing.T) {
	env := setupTestEnv(t)

	env.importSheet(t, [][]any{
		{"SKU-1", "Profumo X", "profumeria", "uomo", "Acme", "100", "122", "", "", ""},
		{"SKU-2", "Crema Y", "cosmesi", "", "Acme", "50", "61", "48.80", "2026-10-01", "2026-10-31"},
	})

	batchID := env.createAndInitBatch(t, "Saldi ottobre")

	// Pending queue sees both drafts
	pendingResp := do(t, env.server, "GET", "/api/rows/pending?store=it", nil, env.token)
	var pending struct {
		TotalCount int64 `json:"totalCount"`
	}
	decodeJSON(t, pendingResp, &pending)
	assert.Equal(t, int64(2), pending.TotalCount)

	// Approve everything
	approveResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/approve",
		jsonBody(t, map[string]any{"rowIds": []string{}}), env.token)
	require.Equal(t, http.StatusOK, approveResp.StatusCode)
	var gate struct {
		Success bool `json:"success"`
	}
	decodeJSON(t, approveResp, &gate)
	assert.True(t, gate.Success)

	// Publish
	publishResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/publish", jsonBody(t, struct{}{}), env.token)
	require.Equal(t, http.StatusOK, publishResp.StatusCode)
	var publish struct {
		Esito  string `json:"esito"`
		Errori []any  `json:"errori"`
	}
	decodeJSON(t, publishResp, &publish)
	assert.Equal(t, "success", publish.Esito)
	assert.Empty(t, publish.Errori)
	assert.Equal(t, 1, env.magento.putCount("SKU-1"))
	assert.Equal(t, 1, env.magento.putCount("SKU-2"))

	// Derived batch status
	batchResp := do(t, env.server, "GET", "/api/batches/"+batchID, nil, env.token)
	var got struct {
		Stato string `json:"stato"`
	}
	decodeJSON(t, batchResp, &got)
	assert.Equal(t, "published", got.Stato)

	// Audit trail: approve + publish
	auditResp := do(t, env.server, "GET", "/api/batches/"+batchID+"/audit", nil, env.token)
	var audit struct {
		Items []struct {
			Action string `json:"action"`
			Actor  string `json:"actor"`
		} `json:"items"`
	}
	decodeJSON(t, auditResp, &audit)
	require.Len(t, audit.Items, 2)
	for _, item := range audit.Items {
		assert.Equal(t, "admin@e2e.test", item.Actor)
	}
}

// Partial failure and retry: a failing SKU stays retryable and only it is
// re-sent on the second publish.
func TestE2E_PartialPublishAndRetry(t *testing.T) {
	env := setupTestEnv(t)
	env.magento.failSKUs["SKU-BAD"] = true

	env.importSheet(t, [][]any{
		{"SKU-OK", "Ok", "", "", "", "", "12.20", "", "", ""},
		{"SKU-BAD", "Bad", "", "", "", "", "24.40", "", "", ""},
	})
	batchID := env.createAndInitBatch(t, "Retry test")

	approveResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/approve",
		jsonBody(t, map[string]any{"rowIds": []string{}}), env.token)
	require.Equal(t, http.StatusOK, approveResp.StatusCode)
	approveResp.Body.Close()

	publishResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/publish", jsonBody(t, struct{}{}), env.token)
	var publish struct {
		Esito  string `json:"esito"`
		Errori []struct {
			SKU    string `json:"sku"`
			Errore string `json:"errore"`
		} `json:"errori"`
	}
	decodeJSON(t, publishResp, &publish)
	assert.Equal(t, "partial", publish.Esito)
	require.Len(t, publish.Errori, 1)
	assert.Equal(t, "SKU-BAD", publish.Errori[0].SKU)

	// Storefront recovers; retry touches only the failed SKU
	env.magento.failSKUs["SKU-BAD"] = false
	retryResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/publish", jsonBody(t, struct{}{}), env.token)
	decodeJSON(t, retryResp, &publish)
	assert.Equal(t, "success", publish.Esito)
	assert.Equal(t, 1, env.magento.putCount("SKU-OK"))
	assert.Equal(t, 2, env.magento.putCount("SKU-BAD"))
}

// Approval conflict: rows already approved cannot be approved again.
func TestE2E_ApproveConflict(t *testing.T) {
	env := setupTestEnv(t)

	env.importSheet(t, [][]any{
		{"SKU-1", "", "", "", "", "", "12.20", "", "", ""},
	})
	batchID := env.createAndInitBatch(t, "Conflict test")

	first := do(t, env.server, "POST", "/api/batches/"+batchID+"/approve",
		jsonBody(t, map[string]any{"rowIds": []string{}}), env.token)
	require.Equal(t, http.StatusOK, first.StatusCode)
	first.Body.Close()

	second := do(t, env.server, "POST", "/api/batches/"+batchID+"/approve",
		jsonBody(t, map[string]any{"rowIds": []string{}}), env.token)
	defer second.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, second.StatusCode,
		"no draft rows left to approve")
}

// Reject is terminal and demands a reason.
func TestE2E_RejectFlow(t *testing.T) {
	env := setupTestEnv(t)

	env.importSheet(t, [][]any{
		{"SKU-1", "", "", "", "", "", "12.20", "", "", ""},
	})
	batchID := env.createAndInitBatch(t, "Reject test")

	rowsResp := do(t, env.server, "GET", "/api/batches/"+batchID+"/rows", nil, env.token)
	var rows struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decodeJSON(t, rowsResp, &rows)
	require.Len(t, rows.Items, 1)
	rowID := rows.Items[0].ID

	noReason := do(t, env.server, "POST", "/api/rows/reject",
		jsonBody(t, map[string]any{"rowIds": []string{rowID}}), env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, noReason.StatusCode)
	noReason.Body.Close()

	rejectResp := do(t, env.server, "POST", "/api/rows/reject",
		jsonBody(t, map[string]any{"rowIds": []string{rowID}, "reason": "prezzi errati"}), env.token)
	require.Equal(t, http.StatusOK, rejectResp.StatusCode)
	rejectResp.Body.Close()

	// Rejected rows cannot be published
	publishResp := do(t, env.server, "POST", "/api/batches/"+batchID+"/publish", jsonBody(t, struct{}{}), env.token)
	defer publishResp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, publishResp.StatusCode)
	assert.Zero(t, env.magento.putCount("SKU-1"))
}
