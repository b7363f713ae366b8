package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

// ReportStore is the slice of the consent store reporting needs.
type ReportStore interface {
	QueryRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error)
	CountRequestsByStatus(ctx context.Context) (map[string]int, error)
	StalePendingRequests(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error)
}

// ReportService serves the operator console's read side: filtered listings,
// KPI counts and the evidence CSV export.
type ReportService struct {
	store  ReportStore
	logger *logrus.Logger
}

// NewReportService creates a new report service instance
func NewReportService(store ReportStore, logger *logrus.Logger) *ReportService {
	return &ReportService{store: store, logger: logger}
}

// ListRequests returns requests matching the filter, newest first.
func (s *ReportService) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error) {
	return s.store.QueryRequests(ctx, filter)
}

// CountStale returns how many pending requests are older than the threshold.
func (s *ReportService) CountStale(ctx context.Context, olderThanDays int) (int, error) {
	rows, err := s.store.StalePendingRequests(ctx, olderThanDays)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Stats aggregates the dashboard KPIs.
func (s *ReportService) Stats(ctx context.Context) (*models.RequestStats, error) {
	counts, err := s.store.CountRequestsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.RequestStats{
		Pending:  counts[models.StatusPending],
		Accepted: counts[models.StatusAccepted],
		Rejected: counts[models.StatusRejected],
		Failed:   counts[models.StatusFailed],
		Revoked:  counts[models.StatusRevoked],
	}
	for _, c := range counts {
		stats.Total += c
	}
	if stats.Total > 0 {
		stats.AcceptanceRate = float64(stats.Accepted) / float64(stats.Total) * 100
	}

	return stats, nil
}

// evidenceColumns is the fixed column set of the evidence export.
var evidenceColumns = []string{
	"phone", "name", "status", "sent_at", "accepted_at",
	"ip_address", "user_agent", "terms_version",
}

// WriteEvidenceCSV streams the consent evidence export for the filtered
// requests. The column set is the legally relevant subset: who was asked,
// what they answered, when, from where, and against which terms text.
func (s *ReportService) WriteEvidenceCSV(ctx context.Context, w io.Writer, filter models.RequestFilter) error {
	requests, err := s.store.QueryRequests(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(evidenceColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range requests {
		record := []string{
			r.Phone,
			r.Name,
			r.Status,
			r.SentAt.Format(time.RFC3339),
			formatNullableTime(r.AcceptedAt),
			derefOrEmpty(r.IPAddress),
			derefOrEmpty(r.UserAgent),
			r.TermsVersion,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.logger.WithField("rows", len(requests)).Info("Evidence CSV exported")
	return nil
}

func formatNullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
