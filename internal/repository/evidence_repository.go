package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/veridex/custody-api/internal/models"
)

// EvidenceRepository provides database access for evidence records.
type EvidenceRepository struct {
	db *sqlx.DB
}

// NewEvidenceRepository creates a new instance of EvidenceRepository.
func NewEvidenceRepository(db *sqlx.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

const evidenceColumns = `id, case_id, blob_key, original_filename, description, media_type, status, sha256, md5, size_bytes, uploaded_by, uploaded_at`

// Create inserts a new evidence record. Content columns are written once here
// and never updated afterwards.
func (r *EvidenceRepository) Create(ctx context.Context, e *models.Evidence) error {
	const query = `INSERT INTO evidence (id, case_id, blob_key, original_filename, description, media_type, status, sha256, md5, size_bytes, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query, e.ID, e.CaseID, e.BlobKey, e.OriginalFilename, e.Description, e.MediaType, e.Status, e.SHA256, e.MD5, e.SizeBytes, e.UploadedBy, e.UploadedAt); err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// GetByID returns an evidence record by identifier.
func (r *EvidenceRepository) GetByID(ctx context.Context, id string) (*models.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1 LIMIT 1`
	var e models.Evidence
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find evidence by id: %w", err)
	}
	return &e, nil
}

// ListByCase returns all evidence attached to a case, newest first.
func (r *EvidenceRepository) ListByCase(ctx context.Context, caseID string) ([]models.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE case_id = $1 ORDER BY uploaded_at DESC`
	var items []models.Evidence
	if err := r.db.SelectContext(ctx, &items, query, caseID); err != nil {
		return nil, fmt.Errorf("list evidence by case: %w", err)
	}
	return items, nil
}

// UpdateDescription amends the evidence description. The only other mutable
// column is status; file content and hashes are immutable.
func (r *EvidenceRepository) UpdateDescription(ctx context.Context, id, description string) error {
	const query = `UPDATE evidence SET description = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, description); err != nil {
		return fmt.Errorf("update evidence description: %w", err)
	}
	return nil
}

// UpdateStatus amends the evidence validity status.
func (r *EvidenceRepository) UpdateStatus(ctx context.Context, id string, status models.MediaStatus) error {
	const query = `UPDATE evidence SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update evidence status: %w", err)
	}
	return nil
}

// CountAll returns the total number of evidence records.
func (r *EvidenceRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM evidence`); err != nil {
		return 0, fmt.Errorf("count evidence: %w", err)
	}
	return count, nil
}
