package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/knockerapp/fieldsync/internal/remote"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/internal/syncer"
	"github.com/knockerapp/fieldsync/internal/valuesets"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

type staticFetcher struct{ entries []valuesets.Entry }

func (f staticFetcher) FetchValueSet(context.Context, string) ([]valuesets.Entry, error) {
	return f.entries, nil
}

type offlineProber struct{}

func (offlineProber) Reachable(context.Context) bool { return false }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(models.All()...))

	st := store.New(gormDB)

	cache, err := valuesets.NewCache(valuesets.CacheParams{
		Storage: st,
		Fetcher: staticFetcher{entries: []valuesets.Entry{{Label: "Lead", Value: "Lead", Active: true}}},
		Log:     logg,
	})
	require.NoError(t, err)

	pusher, err := remote.NewClient(remote.ClientParams{
		Config: config.RemoteConfig{BaseURL: "http://127.0.0.1:1"},
		Log:    logg,
	})
	require.NoError(t, err)

	coord, err := syncer.New(syncer.Params{
		Storage: st,
		Pusher:  pusher,
		Prober:  offlineProber{},
		Config:  config.SyncConfig{MaxAttempts: 3},
		Log:     logg,
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"

	return NewRouter(cfg, logg, nil, st, cache, coord, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "test", rec.Header().Get("X-FieldSync-Env"))
}

func TestRouter_PropertyLifecycle(t *testing.T) {
	router := newTestRouter(t)

	created := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude":  39.7392,
		"longitude": -104.9903,
		"payload":   map[string]any{"Street__c": "123 Main St"},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id, _ := decodeData(t, created)["id"].(string)
	require.NotEmpty(t, id)
	assert.Contains(t, id, "local_")

	// The new property shows up in its bounding box.
	inView := doJSON(t, router, http.MethodGet,
		"/properties?minLat=39&maxLat=40&minLng=-105&maxLng=-104", nil)
	require.Equal(t, http.StatusOK, inView.Code)
	var listEnvelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(inView.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	assert.Equal(t, "Not Knocked", listEnvelope.Data[0]["status"])

	// And the create landed in the outbox.
	status := doJSON(t, router, http.MethodGet, "/sync/status", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, float64(1), decodeData(t, status)["pending"])

	fetched := doJSON(t, router, http.MethodGet, "/properties/"+id, nil)
	assert.Equal(t, http.StatusOK, fetched.Code)
}

func TestRouter_PropertyUpdateQueuesUpload(t *testing.T) {
	router := newTestRouter(t)

	created := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude":  39.7392,
		"longitude": -104.9903,
		"payload":   map[string]any{"Street__c": "123 Main St"},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id, _ := decodeData(t, created)["id"].(string)

	updated := doJSON(t, router, http.MethodPut, "/properties/"+id, map[string]any{
		"payload": map[string]any{"Street__c": "125 Main St"},
	})
	require.Equal(t, http.StatusOK, updated.Code)

	// Create plus update are both waiting in the outbox.
	status := doJSON(t, router, http.MethodGet, "/sync/status", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, float64(2), decodeData(t, status)["pending"])

	// A payload-only update keeps the stored coordinates.
	inView := doJSON(t, router, http.MethodGet,
		"/properties?minLat=39&maxLat=40&minLng=-105&maxLng=-104", nil)
	require.Equal(t, http.StatusOK, inView.Code)
	var listEnvelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(inView.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
}

func TestRouter_LeadUpdateQueuesUpload(t *testing.T) {
	router := newTestRouter(t)

	created := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude":  39.7392,
		"longitude": -104.9903,
		"payload":   map[string]any{"Street__c": "123 Main St"},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	propertyID, _ := decodeData(t, created)["id"].(string)

	lead := doJSON(t, router, http.MethodPost, "/properties/"+propertyID+"/leads", map[string]any{
		"payload": map[string]any{"FirstName": "Dana"},
	})
	require.Equal(t, http.StatusCreated, lead.Code)
	leadID, _ := decodeData(t, lead)["id"].(string)
	require.NotEmpty(t, leadID)

	updated := doJSON(t, router, http.MethodPut, "/properties/"+propertyID+"/leads/"+leadID, map[string]any{
		"payload": map[string]any{"FirstName": "Dana", "Phone": "555-0123"},
	})
	require.Equal(t, http.StatusOK, updated.Code)

	status := doJSON(t, router, http.MethodGet, "/sync/status", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, float64(3), decodeData(t, status)["pending"])

	missing := doJSON(t, router, http.MethodPut, "/properties/"+propertyID+"/leads/nope", map[string]any{
		"payload": map[string]any{},
	})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRouter_PropertyCreateValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude": 200.0,
		"payload":  map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_KnockRestylesMarker(t *testing.T) {
	router := newTestRouter(t)

	created := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude":  39.7392,
		"longitude": -104.9903,
		"payload":   map[string]any{"Street__c": "123 Main St"},
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id, _ := decodeData(t, created)["id"].(string)

	knocked := doJSON(t, router, http.MethodPost, "/properties/"+id+"/knocks", map[string]any{
		"dispositionType": "Insurance Restoration",
		"status":          "Lead",
	})
	require.Equal(t, http.StatusCreated, knocked.Code)
	style, ok := decodeData(t, knocked)["style"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "square", style["shape"])

	inView := doJSON(t, router, http.MethodGet,
		"/properties?minLat=39&maxLat=40&minLng=-105&maxLng=-104&dispositionType=Insurance+Restoration", nil)
	require.Equal(t, http.StatusOK, inView.Code)
	var listEnvelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(inView.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	assert.Equal(t, "Lead", listEnvelope.Data[0]["status"])
}

func TestRouter_KnockAgainstUnknownPropertyIs404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/properties/nope/knocks", map[string]any{
		"dispositionType": "Insurance Restoration",
		"status":          "Lead",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_GeoJSONFormat(t *testing.T) {
	router := newTestRouter(t)

	created := doJSON(t, router, http.MethodPost, "/properties", map[string]any{
		"latitude":  39.7392,
		"longitude": -104.9903,
		"payload":   map[string]any{"Street__c": "123 Main St"},
	})
	require.Equal(t, http.StatusCreated, created.Code)

	rec := doJSON(t, router, http.MethodGet,
		"/properties?minLat=39&maxLat=40&minLng=-105&maxLng=-104&format=geojson", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "FeatureCollection", data["type"])
}

func TestRouter_ValueSetServedThroughCache(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/valuesets/Solar_Knock_Status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "Solar_Knock_Status", data["name"])
	values, ok := data["values"].([]any)
	require.True(t, ok)
	assert.Len(t, values, 1)
}

func TestRouter_SyncTriggerOfflineReportsNoRun(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/sync", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeData(t, rec)["ran"])
}
