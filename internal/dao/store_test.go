package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

func TestRecordSendFailureCommitsTogether(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	status := 500
	body := "provider exploded"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE habeas_requests SET status = 'failed'`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO send_logs`).
		WithArgs(int64(9), &status, &body).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.RecordSendFailure(context.Background(), 9, &status, &body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSendFailureRollsBackOnMissingRequest(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	body := "provider exploded"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE habeas_requests SET status = 'failed'`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.RecordSendFailure(context.Background(), 9, nil, &body)

	assert.ErrorIs(t, err, models.ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
