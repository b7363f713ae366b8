package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateExistingCampaign(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewCampaignDAO(db)

	mock.ExpectQuery(`SELECT id FROM campaigns WHERE name = \$1`).
		WithArgs("Campaña 2026").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := dao.GetOrCreate(context.Background(), "Campaña 2026")

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateNewCampaign(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewCampaignDAO(db)

	mock.ExpectQuery(`SELECT id FROM campaigns WHERE name = \$1`).
		WithArgs("Campaña 2026").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO campaigns \(name\) VALUES \(\$1\) RETURNING id`).
		WithArgs("Campaña 2026").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	id, err := dao.GetOrCreate(context.Background(), "Campaña 2026")

	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateRequiresName(t *testing.T) {
	db, _ := newMockDB(t)
	dao := NewCampaignDAO(db)

	_, err := dao.GetOrCreate(context.Background(), "")
	assert.Error(t, err)
}
