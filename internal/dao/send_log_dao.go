package dao

import (
	"context"
	"fmt"

	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/models"
)

// SendLogDAO handles database operations for send-attempt audit logs
type SendLogDAO struct {
	db *database.DB
}

// NewSendLogDAO creates a new SendLogDAO instance
func NewSendLogDAO(db *database.DB) *SendLogDAO {
	return &SendLogDAO{db: db}
}

// Create appends a send-attempt log entry. Both arguments are nullable:
// a transport failure has no provider status code, only an error body.
func (dao *SendLogDAO) Create(ctx context.Context, requestID int64, status *int, body *string) error {
	return dao.create(ctx, dao.db, requestID, status, body)
}

// CreateWithTx appends a log entry inside an existing transaction.
func (dao *SendLogDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, requestID int64, status *int, body *string) error {
	return dao.create(ctx, tx, requestID, status, body)
}

func (dao *SendLogDAO) create(ctx context.Context, ex execer, requestID int64, status *int, body *string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO send_logs (request_id, response_status, response_body)
		VALUES ($1, $2, $3)
	`, requestID, status, body)
	if err != nil {
		return fmt.Errorf("failed to create send log: %w", err)
	}

	return nil
}

// ListByRequest returns all send attempts for a request in attempt order.
func (dao *SendLogDAO) ListByRequest(ctx context.Context, requestID int64) ([]models.SendLogEntry, error) {
	var entries []models.SendLogEntry
	err := dao.db.SelectContext(ctx, &entries, `
		SELECT id, request_id, response_status, response_body, created_at
		FROM send_logs
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list send logs: %w", err)
	}

	return entries, nil
}
