package dao

import (
	"context"
	"time"

	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/models"
)

// Store is the durable home for campaigns, legal terms, consent requests and
// send logs. It is the single facade services talk to; each method commits
// on its own, except where noted.
type Store struct {
	db        *database.DB
	Campaigns *CampaignDAO
	Terms     *LegalTermsDAO
	Requests  *RequestDAO
	SendLogs  *SendLogDAO
}

// NewStore creates a Store over the given database connection.
func NewStore(db *database.DB) *Store {
	return &Store{
		db:        db,
		Campaigns: NewCampaignDAO(db),
		Terms:     NewLegalTermsDAO(db),
		Requests:  NewRequestDAO(db),
		SendLogs:  NewSendLogDAO(db),
	}
}

// CurrentTermsVersion returns the identifier of the current legal terms
// version, or models.ErrNoCurrentTerms.
func (s *Store) CurrentTermsVersion(ctx context.Context) (string, error) {
	return s.Terms.CurrentVersion(ctx)
}

// GetOrCreateCampaign resolves a campaign id by name, creating it on first use.
func (s *Store) GetOrCreateCampaign(ctx context.Context, name string) (int64, error) {
	return s.Campaigns.GetOrCreate(ctx, name)
}

// UpsertPendingRequest enrolls a recipient as pending per the given mode.
func (s *Store) UpsertPendingRequest(ctx context.Context, p models.UpsertParams, mode models.UpsertMode) (int64, bool, error) {
	return s.Requests.UpsertPending(ctx, p, mode)
}

// LogSendAttempt appends a send-log entry on its own. Used on the success
// path, where the request row itself is untouched.
func (s *Store) LogSendAttempt(ctx context.Context, requestID int64, status *int, body *string) error {
	return s.SendLogs.Create(ctx, requestID, status, body)
}

// RecordSendFailure marks the request failed and appends the send-log entry
// in a single transaction, so a crash cannot leave a failed status without
// its audit row.
func (s *Store) RecordSendFailure(ctx context.Context, requestID int64, status *int, body *string) error {
	return s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.Requests.MarkFailedWithTx(ctx, tx, requestID); err != nil {
			return err
		}
		return s.SendLogs.CreateWithTx(ctx, tx, requestID, status, body)
	})
}

// RefreshRequestSentAt restarts the staleness clock for a request.
func (s *Store) RefreshRequestSentAt(ctx context.Context, requestID int64) error {
	return s.Requests.RefreshSentAt(ctx, requestID)
}

// ExtendRequestExpiry restarts the staleness clock and renews the validity window.
func (s *Store) ExtendRequestExpiry(ctx context.Context, requestID int64, validityDays int) error {
	return s.Requests.ExtendExpiry(ctx, requestID, validityDays)
}

// FindRequestByToken resolves a token to its request joined with terms content.
func (s *Store) FindRequestByToken(ctx context.Context, token string) (*models.RequestWithTerms, error) {
	return s.Requests.FindByToken(ctx, token)
}

// RecordDecision persists an accept/reject decision from an open state.
func (s *Store) RecordDecision(ctx context.Context, requestID int64, status string, decidedAt time.Time, ip, userAgent string) error {
	return s.Requests.RecordDecision(ctx, requestID, status, decidedAt, ip, userAgent)
}

// RevokeRequest transitions an accepted request to revoked.
func (s *Store) RevokeRequest(ctx context.Context, requestID int64, revokedAt time.Time, ip, userAgent string) error {
	return s.Requests.Revoke(ctx, requestID, revokedAt, ip, userAgent)
}

// QueryRequests returns requests matching the reporting filter.
func (s *Store) QueryRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error) {
	return s.Requests.Query(ctx, filter)
}

// StalePendingRequests returns pending requests older than the threshold.
func (s *Store) StalePendingRequests(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error) {
	return s.Requests.StalePending(ctx, olderThanDays)
}

// CountRequestsByStatus aggregates request counts for the dashboard.
func (s *Store) CountRequestsByStatus(ctx context.Context) (map[string]int, error) {
	return s.Requests.CountByStatus(ctx)
}
