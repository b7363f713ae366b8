package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

type fakeReportStore struct {
	rows      []models.ConsentRequest
	counts    map[string]int
	staleRows []models.ConsentRequest
}

func (f *fakeReportStore) QueryRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error) {
	return f.rows, nil
}

func (f *fakeReportStore) CountRequestsByStatus(ctx context.Context) (map[string]int, error) {
	return f.counts, nil
}

func (f *fakeReportStore) StalePendingRequests(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error) {
	return f.staleRows, nil
}

func TestStats(t *testing.T) {
	store := &fakeReportStore{counts: map[string]int{
		models.StatusPending:  10,
		models.StatusAccepted: 25,
		models.StatusRejected: 5,
		models.StatusFailed:   8,
		models.StatusRevoked:  2,
	}}
	svc := NewReportService(store, testLogger())

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 50, stats.Total)
	assert.Equal(t, 25, stats.Accepted)
	assert.Equal(t, 8, stats.Failed)
	assert.Equal(t, 2, stats.Revoked)
	assert.InDelta(t, 50.0, stats.AcceptanceRate, 0.001)
}

func TestStatsEmpty(t *testing.T) {
	svc := NewReportService(&fakeReportStore{counts: map[string]int{}}, testLogger())

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AcceptanceRate)
}

func TestCountStale(t *testing.T) {
	store := &fakeReportStore{staleRows: make([]models.ConsentRequest, 4)}
	svc := NewReportService(store, testLogger())

	count, err := svc.CountStale(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestWriteEvidenceCSV(t *testing.T) {
	acceptedAt := time.Date(2026, 8, 20, 15, 4, 5, 0, time.UTC)
	ip := "203.0.113.7"
	agent := "test-agent"

	store := &fakeReportStore{rows: []models.ConsentRequest{
		{
			Phone:        "5551",
			Name:         "Ana",
			Status:       models.StatusAccepted,
			SentAt:       time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC),
			AcceptedAt:   &acceptedAt,
			IPAddress:    &ip,
			UserAgent:    &agent,
			TermsVersion: "v1",
		},
		{
			Phone:        "5552",
			Name:         "Luis",
			Status:       models.StatusPending,
			SentAt:       time.Date(2026, 8, 18, 9, 1, 0, 0, time.UTC),
			TermsVersion: "v1",
		},
	}}
	svc := NewReportService(store, testLogger())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteEvidenceCSV(context.Background(), &buf, models.RequestFilter{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"phone", "name", "status", "sent_at", "accepted_at",
		"ip_address", "user_agent", "terms_version",
	}, records[0])

	assert.Equal(t, []string{
		"5551", "Ana", "accepted", "2026-08-18T09:00:00Z", "2026-08-20T15:04:05Z",
		"203.0.113.7", "test-agent", "v1",
	}, records[1])

	// Nullable fields render empty for undecided requests.
	assert.Equal(t, "", records[2][4])
	assert.Equal(t, "", records[2][5])
}
