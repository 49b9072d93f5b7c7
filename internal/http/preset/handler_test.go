package preset_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	presetHandler "github.com/eklundh/kontoutdrag/internal/http/preset"
	"github.com/eklundh/kontoutdrag/internal/preset"
	"github.com/eklundh/kontoutdrag/internal/preset/store"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	svc := preset.NewService(store.NewFile(filepath.Join(t.TempDir(), "presets.yaml")))
	h := presetHandler.NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/presets", h.Routes)

	return r
}

const nordea = `{"date_column":"Bokföringsdag","description_column":"Text","amount_column":"Belopp","currency_code":"SEK"}`

func put(t *testing.T, router http.Handler, name, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPut, "/presets/"+name, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestSaveAndGet(t *testing.T) {
	router := newRouter(t)

	rec := put(t, router, "Nordea", nordea)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presets/Nordea", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		PresetName   string `json:"preset_name"`
		DateColumn   string `json:"date_column"`
		CurrencyCode string `json:"currency_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Nordea", got.PresetName)
	assert.Equal(t, "Bokföringsdag", got.DateColumn)
	assert.Equal(t, "SEK", got.CurrencyCode)
}

func TestGetMissing(t *testing.T) {
	router := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presets/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList(t *testing.T) {
	router := newRouter(t)

	require.Equal(t, http.StatusNoContent, put(t, router, "Wise", nordea).Code)
	require.Equal(t, http.StatusNoContent, put(t, router, "Amex", nordea).Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Amex", got[0].Name)
	assert.Equal(t, "Wise", got[1].Name)
}

func TestSaveIncompleteMapping(t *testing.T) {
	router := newRouter(t)

	rec := put(t, router, "Broken", `{"date_column":"Datum"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
