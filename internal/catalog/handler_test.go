package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

func newTestRouter(repo *fakeRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo, ledger.NewMemoryStore()))
	r := chi.NewRouter()
	r.Route("/catalog", h.MountRoutes)
	return r
}

func TestHandleScanMaterializesDummy(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/catalog/scan", strings.NewReader(`{"barcode":"55555501250"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		IsUnlimited bool            `json:"is_unlimited"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "One-off item 12.50", body.Name)
	require.True(t, body.Price.Equal(decimal.RequireFromString("12.50")))
	require.True(t, body.IsUnlimited)
}

func TestHandleScanUnknownBarcode(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/catalog/scan", strings.NewReader(`{"barcode":"0000000000000"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleScanMissingBarcode(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/catalog/scan", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Product{Name: "Horálky", Barcode: "8586001760103", Price: decimal.New(70, -2)})
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/catalog/search?q=horalky", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "Horálky", body[0].Name)
}

func TestHandleCreateProductDuplicateBarcode(t *testing.T) {
	repo := newFakeRepo()
	repo.add(Product{Name: "Horalky", Barcode: "8586001760103"})
	router := newTestRouter(repo)

	payload := `{"name":"Horalky again","barcode":"8586001760103","price":"0.70"}`
	req := httptest.NewRequest(http.MethodPost, "/catalog/products", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSetPrice(t *testing.T) {
	repo := newFakeRepo()
	p := repo.add(Product{Name: "Horalky", Barcode: "8586001760103", Price: decimal.New(70, -2)})
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/catalog/products/1/price", strings.NewReader(`{"price":"0.80"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, repo.products[p.ID].Price.Equal(decimal.RequireFromString("0.80")))
}
