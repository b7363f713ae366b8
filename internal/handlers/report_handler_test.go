package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/internal/service"
)

type stubReportStore struct {
	rows      []models.ConsentRequest
	counts    map[string]int
	staleRows []models.ConsentRequest
}

func (s *stubReportStore) QueryRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error) {
	return s.rows, nil
}

func (s *stubReportStore) CountRequestsByStatus(ctx context.Context) (map[string]int, error) {
	return s.counts, nil
}

func (s *stubReportStore) StalePendingRequests(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error) {
	return s.staleRows, nil
}

func reportTestRouter(store *stubReportStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewReportHandler(service.NewReportService(store, testLogger()), 5, testLogger())

	router := gin.New()
	router.GET("/api/v1/requests", handler.ListRequests)
	router.GET("/api/v1/requests/stats", handler.Stats)
	router.GET("/api/v1/requests/stale-count", handler.StaleCount)
	router.GET("/api/v1/requests/export", handler.ExportEvidence)
	return router
}

func TestListRequests(t *testing.T) {
	store := &stubReportStore{rows: []models.ConsentRequest{
		{ID: 1, Phone: "5551", Name: "Ana", Token: "tok-1", Status: models.StatusPending, SentAt: time.Now()},
	}}
	router := reportTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Requests []models.ConsentRequest `json:"requests"`
		Count    int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Requests, 1)
	assert.Equal(t, "tok-1", body.Requests[0].Token)
}

func TestListRequestsBadFilter(t *testing.T) {
	router := reportTestRouter(&stubReportStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?status=bogus", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	store := &stubReportStore{counts: map[string]int{
		models.StatusPending:  5,
		models.StatusAccepted: 15,
	}}
	router := reportTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats models.RequestStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 20, stats.Total)
	assert.InDelta(t, 75.0, stats.AcceptanceRate, 0.001)
}

func TestStaleCountCustomThreshold(t *testing.T) {
	store := &stubReportStore{staleRows: make([]models.ConsentRequest, 3)}
	router := reportTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/stale-count?olderThanDays=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OlderThanDays int `json:"olderThanDays"`
		Count         int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 10, body.OlderThanDays)
	assert.Equal(t, 3, body.Count)
}

func TestStaleCountRejectsBadThreshold(t *testing.T) {
	router := reportTestRouter(&stubReportStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/stale-count?olderThanDays=zero", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportEvidence(t *testing.T) {
	acceptedAt := time.Date(2026, 8, 20, 15, 4, 5, 0, time.UTC)
	store := &stubReportStore{rows: []models.ConsentRequest{
		{
			Phone:        "5551",
			Name:         "Ana",
			Status:       models.StatusAccepted,
			SentAt:       time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC),
			AcceptedAt:   &acceptedAt,
			TermsVersion: "v1",
		},
	}}
	router := reportTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "habeas_evidencia.csv")
	assert.Contains(t, w.Body.String(), "phone,name,status,sent_at,accepted_at,ip_address,user_agent,terms_version")
	assert.Contains(t, w.Body.String(), "5551,Ana,accepted")
}
