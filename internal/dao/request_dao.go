package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/models"
)

const requestColumns = `id, phone, name, token, status, sent_at, accepted_at, expires_at,
	       terms_version, campaign_id, language, ip_address, user_agent, updated_at`

// RequestDAO handles database operations for consent requests
type RequestDAO struct {
	db *database.DB
}

// NewRequestDAO creates a new RequestDAO instance
func NewRequestDAO(db *database.DB) *RequestDAO {
	return &RequestDAO{db: db}
}

// UpsertPending enrolls a recipient as a pending request. On a
// (phone, campaign_id) conflict the mode decides: skip-duplicates leaves the
// existing row untouched and reports inserted=false with no id; force-resend
// replaces the token and resets status and sent_at on the existing row.
func (dao *RequestDAO) UpsertPending(ctx context.Context, p models.UpsertParams, mode models.UpsertMode) (int64, bool, error) {
	var conflictClause string
	switch mode {
	case models.UpsertSkipDuplicates:
		conflictClause = `ON CONFLICT (phone, campaign_id) DO NOTHING`
	case models.UpsertForceResend:
		conflictClause = `ON CONFLICT (phone, campaign_id) DO UPDATE
			SET token = EXCLUDED.token, status = 'pending', sent_at = NOW()`
	default:
		return 0, false, fmt.Errorf("unknown upsert mode: %d", mode)
	}

	query := fmt.Sprintf(`
		INSERT INTO habeas_requests (
			phone, name, token, status, expires_at, terms_version, campaign_id, language
		) VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7)
		%s
		RETURNING id
	`, conflictClause)

	var id int64
	err := dao.db.GetContext(ctx, &id, query,
		p.Phone, p.Name, p.Token, p.ExpiresAt, p.TermsVersion, p.CampaignID, p.Language)
	if err != nil {
		if err == sql.ErrNoRows && mode == models.UpsertSkipDuplicates {
			// Conflict row already exists; nothing was written.
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to upsert consent request: %w", err)
	}

	return id, true, nil
}

// MarkFailed flags a request after an unsuccessful send attempt. A failed
// request stays eligible for later dispatch passes.
func (dao *RequestDAO) MarkFailed(ctx context.Context, id int64) error {
	return dao.markFailed(ctx, dao.db, id)
}

// MarkFailedWithTx is MarkFailed inside an existing transaction, so the
// status flip and the send-log append commit together.
func (dao *RequestDAO) MarkFailedWithTx(ctx context.Context, tx *database.Transaction, id int64) error {
	return dao.markFailed(ctx, tx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (dao *RequestDAO) markFailed(ctx context.Context, ex execer, id int64) error {
	result, err := ex.ExecContext(ctx,
		`UPDATE habeas_requests SET status = 'failed', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark request failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRequestNotFound
	}

	return nil
}

// RefreshSentAt resets the staleness clock after a successful stale resend.
// It deliberately leaves expires_at alone; ExtendExpiry is the separate,
// config-gated policy that also renews the validity window.
func (dao *RequestDAO) RefreshSentAt(ctx context.Context, id int64) error {
	result, err := dao.db.ExecContext(ctx,
		`UPDATE habeas_requests SET sent_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to refresh sent_at: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRequestNotFound
	}

	return nil
}

// ExtendExpiry recomputes expires_at from the validity window, in addition
// to refreshing sent_at.
func (dao *RequestDAO) ExtendExpiry(ctx context.Context, id int64, validityDays int) error {
	result, err := dao.db.ExecContext(ctx, `
		UPDATE habeas_requests
		SET sent_at = NOW(),
		    expires_at = NOW() + ($2 * INTERVAL '1 day'),
		    updated_at = NOW()
		WHERE id = $1
	`, id, validityDays)
	if err != nil {
		return fmt.Errorf("failed to extend request expiry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRequestNotFound
	}

	return nil
}

// FindByToken resolves a consent token to its request, joined with the legal
// text the request was issued against. The token is the sole public lookup
// key; returns models.ErrRequestNotFound when it matches nothing.
func (dao *RequestDAO) FindByToken(ctx context.Context, token string) (*models.RequestWithTerms, error) {
	query := `
		SELECT h.id, h.phone, h.name, h.token, h.status, h.sent_at, h.accepted_at,
		       h.expires_at, h.terms_version, h.campaign_id, h.language,
		       h.ip_address, h.user_agent, h.updated_at,
		       l.content AS terms_content
		FROM habeas_requests h
		LEFT JOIN legal_terms l ON h.terms_version = l.version
		WHERE h.token = $1
	`

	var request models.RequestWithTerms
	err := dao.db.GetContext(ctx, &request, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find request by token: %w", err)
	}

	return &request, nil
}

// RecordDecision persists the recipient's accept/reject decision in a single
// atomic statement, guarded so it only fires from an open (pending or
// failed) state. Zero rows affected means the request was already decided
// concurrently; that surfaces as ErrInvalidTransition.
func (dao *RequestDAO) RecordDecision(ctx context.Context, id int64, status string, decidedAt time.Time, ip, userAgent string) error {
	if status != models.StatusAccepted && status != models.StatusRejected {
		return fmt.Errorf("invalid decision status: %s", status)
	}

	result, err := dao.db.ExecContext(ctx, `
		UPDATE habeas_requests
		SET status = $1,
		    accepted_at = $2,
		    ip_address = $3,
		    user_agent = $4,
		    updated_at = NOW()
		WHERE id = $5 AND status IN ('pending', 'failed')
	`, status, decidedAt, ip, userAgent, id)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInvalidTransition
	}

	return nil
}

// Revoke transitions an accepted request to the terminal revoked state,
// preserving history. It never re-arms the token.
func (dao *RequestDAO) Revoke(ctx context.Context, id int64, revokedAt time.Time, ip, userAgent string) error {
	result, err := dao.db.ExecContext(ctx, `
		UPDATE habeas_requests
		SET status = 'revoked',
		    accepted_at = $1,
		    ip_address = $2,
		    user_agent = $3,
		    updated_at = NOW()
		WHERE id = $4 AND status = 'accepted'
	`, revokedAt, ip, userAgent, id)
	if err != nil {
		return fmt.Errorf("failed to revoke consent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrInvalidTransition
	}

	return nil
}

// Query returns requests matching the filter, newest first, for reporting.
func (dao *RequestDAO) Query(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			args = append(args, s)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("sent_at::date >= $%d::date", len(args)))
	}

	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("sent_at::date <= $%d::date", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM habeas_requests", requestColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sent_at DESC"

	var requests []models.ConsentRequest
	err := dao.db.SelectContext(ctx, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}

	return requests, nil
}

// StalePending returns pending requests whose last send is older than the
// given threshold, i.e. candidates for the automatic stale resend.
func (dao *RequestDAO) StalePending(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM habeas_requests
		WHERE status = 'pending'
		  AND sent_at < NOW() - ($1 * INTERVAL '1 day')
		ORDER BY sent_at ASC
	`, requestColumns)

	var requests []models.ConsentRequest
	err := dao.db.SelectContext(ctx, &requests, query, olderThanDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending requests: %w", err)
	}

	return requests, nil
}

// CountByStatus aggregates request counts grouped by status.
func (dao *RequestDAO) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := dao.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS count FROM habeas_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}
