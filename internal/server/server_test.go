package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview-dev/spendview/internal/aggregate"
	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/logger"
	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/notes"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	store, err := category.LoadStore(filepath.Join(dir, "mappings.csv"))
	require.NoError(t, err)
	mapper := category.NewMapper(store)
	require.NoError(t, mapper.Update("netflix", "Games"))

	notesStore, err := notes.LoadStore(filepath.Join(dir, "notes.csv"))
	require.NoError(t, err)

	txns := []model.Transaction{
		{
			Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Merchant:    "Netflix",
			MerchantKey: "netflix",
			Amount:      decimal.RequireFromString("-15.99"),
			AccountType: model.AccountCredit,
			SourceBank:  model.BankChase,
			Category:    "Games",
		},
		{
			Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Merchant:    "Costco",
			MerchantKey: "costco",
			Amount:      decimal.RequireFromString("-156.78"),
			AccountType: model.AccountCredit,
			SourceBank:  model.BankCiti,
			Category:    "Groceries",
		},
	}
	series := []model.RecurringSeries{
		{
			MerchantKey:    "netflix",
			Merchant:       "Netflix",
			Period:         model.PeriodMonthly,
			ExpectedAmount: decimal.RequireFromString("15.99"),
			Status:         model.SeriesActive,
		},
	}
	summary := aggregate.Build(txns, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	return New(mapper, notesStore, txns, series, summary, logger.NewWithWriter(io.Discard))
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestTransactions(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var txns []model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	assert.Len(t, txns, 2)
}

func TestRecurring(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/recurring")
	require.Equal(t, http.StatusOK, rec.Code)

	var series []model.RecurringSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 1)
	assert.Equal(t, "netflix", series[0].MerchantKey)
}

func TestSummary(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary aggregate.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.NotEmpty(t, summary.Quarterly)
}

func TestCategories(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Len(t, cats, 24)
	assert.Contains(t, cats, "Groceries")
}

func TestMappings(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/mappings")
	require.Equal(t, http.StatusOK, rec.Code)

	var mappings map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
	assert.Equal(t, "Games", mappings["netflix"])
}

func TestUnmapped_PrimedFromDataset(t *testing.T) {
	srv := newTestServer(t)

	// costco has no pinned mapping, so it needs review straight away; the
	// pinned netflix does not.
	rec := get(t, srv, "/api/unmapped")
	require.Equal(t, http.StatusOK, rec.Code)

	var keys []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Equal(t, []string{"costco"}, keys)
}

func TestUnmapped_PinClearsKey(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/mappings/costco",
		strings.NewReader(`{"category":"Groceries"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	unRec := get(t, srv, "/api/unmapped")
	var keys []string
	require.NoError(t, json.Unmarshal(unRec.Body.Bytes(), &keys))
	assert.Empty(t, keys)
}

func TestUpdateMapping(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/mappings/netflix",
		strings.NewReader(`{"category":"Internet"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Store updated and in-memory transactions re-resolved.
	cat, ok := srv.mapper.Store().Get("netflix")
	require.True(t, ok)
	assert.Equal(t, "Internet", cat)

	txRec := get(t, srv, "/api/transactions")
	var txns []model.Transaction
	require.NoError(t, json.Unmarshal(txRec.Body.Bytes(), &txns))
	for _, txn := range txns {
		if txn.MerchantKey == "netflix" {
			assert.Equal(t, "Internet", txn.Category)
		}
	}
}

func TestUpdateMapping_InvalidCategory(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/mappings/netflix",
		strings.NewReader(`{"category":"Not A Category"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Prior mapping untouched.
	cat, _ := srv.mapper.Store().Get("netflix")
	assert.Equal(t, "Games", cat)
}

func TestUpdateMapping_BadBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/mappings/netflix",
		strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNote(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/notes/2024-03-15%7Cnetflix%7C-15.99",
		strings.NewReader(`{"note":"family plan","tags":["subscription"]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	notesRec := get(t, srv, "/api/notes")
	require.Equal(t, http.StatusOK, notesRec.Code)

	var all map[string]notes.Entry
	require.NoError(t, json.Unmarshal(notesRec.Body.Bytes(), &all))
	require.Contains(t, all, "2024-03-15|netflix|-15.99")
	assert.Equal(t, "family plan", all["2024-03-15|netflix|-15.99"].Note)
	assert.Equal(t, []string{"subscription"}, all["2024-03-15|netflix|-15.99"].Tags)
}

func TestUpdateNote_UnknownTransaction(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/notes/2024-01-01%7Cnobody%7C-1.00",
		strings.NewReader(`{"note":"ghost"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, srv.notes.Len())
}

func TestUpdateNote_EmptyBodyClears(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.notes.Put("2024-03-15|netflix|-15.99", notes.Entry{Note: "review"}))

	req := httptest.NewRequest(http.MethodPut, "/api/notes/2024-03-15%7Cnetflix%7C-15.99",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, srv.notes.Len())
}

func TestUpdateNote_BadBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/notes/2024-03-15%7Cnetflix%7C-15.99",
		strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
