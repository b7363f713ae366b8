package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/models"
)

// LegalTermsDAO handles database operations for legal terms versions
type LegalTermsDAO struct {
	db *database.DB
}

// NewLegalTermsDAO creates a new LegalTermsDAO instance
func NewLegalTermsDAO(db *database.DB) *LegalTermsDAO {
	return &LegalTermsDAO{db: db}
}

// CurrentVersion returns the identifier of the newest non-expired terms
// version. Returns models.ErrNoCurrentTerms when none exists; callers must
// refuse to enroll any recipient in that case.
func (dao *LegalTermsDAO) CurrentVersion(ctx context.Context) (string, error) {
	var version string
	err := dao.db.GetContext(ctx, &version, `
		SELECT version FROM legal_terms
		WHERE valid_to IS NULL OR valid_to > NOW()
		ORDER BY valid_from DESC
		LIMIT 1
	`)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", models.ErrNoCurrentTerms
		}
		return "", fmt.Errorf("failed to get current terms version: %w", err)
	}

	return version, nil
}

// Create appends a new terms version. Versions are append-only: no row is
// ever edited once created.
func (dao *LegalTermsDAO) Create(ctx context.Context, version, content string) error {
	if version == "" || content == "" {
		return fmt.Errorf("terms version and content are required")
	}

	_, err := dao.db.ExecContext(ctx,
		`INSERT INTO legal_terms (version, content) VALUES ($1, $2)`,
		version, content)
	if err != nil {
		return fmt.Errorf("failed to create terms version: %w", err)
	}

	return nil
}

// Get retrieves a terms version by identifier
func (dao *LegalTermsDAO) Get(ctx context.Context, version string) (*models.LegalTermsVersion, error) {
	var terms models.LegalTermsVersion
	err := dao.db.GetContext(ctx, &terms, `
		SELECT version, content, valid_from, valid_to
		FROM legal_terms
		WHERE version = $1
	`, version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("terms version not found: %s", version)
		}
		return nil, fmt.Errorf("failed to get terms version: %w", err)
	}

	return &terms, nil
}
