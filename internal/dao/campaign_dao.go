package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/models"
)

// CampaignDAO handles database operations for campaigns
type CampaignDAO struct {
	db *database.DB
}

// NewCampaignDAO creates a new CampaignDAO instance
func NewCampaignDAO(db *database.DB) *CampaignDAO {
	return &CampaignDAO{db: db}
}

// GetOrCreate returns the id of the campaign with the given name, inserting
// it first if it does not exist. Campaign creation is a low-frequency
// operator action; concurrent callers racing on the same name are resolved
// by the unique constraint, not by locking.
func (dao *CampaignDAO) GetOrCreate(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("campaign name is required")
	}

	var id int64
	err := dao.db.GetContext(ctx, &id, `SELECT id FROM campaigns WHERE name = $1`, name)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up campaign: %w", err)
	}

	err = dao.db.GetContext(ctx, &id,
		`INSERT INTO campaigns (name) VALUES ($1) RETURNING id`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create campaign: %w", err)
	}

	return id, nil
}

// GetByID retrieves a campaign by id
func (dao *CampaignDAO) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	var campaign models.Campaign
	err := dao.db.GetContext(ctx, &campaign,
		`SELECT id, name FROM campaigns WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("campaign not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// List returns all campaigns ordered by name
func (dao *CampaignDAO) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := dao.db.SelectContext(ctx, &campaigns,
		`SELECT id, name FROM campaigns ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}
