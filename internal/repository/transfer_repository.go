package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/veridex/custody-api/internal/models"
)

// TransferRepository provides database access for custody transfers.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository creates a new instance of TransferRepository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

const transferColumns = `id, evidence_id, from_user_id, to_user_id, requested_by, status, reason, review_notes, approved_by, approved_at, created_at`

// Create inserts a new pending transfer.
func (r *TransferRepository) Create(ctx context.Context, transfer *models.CustodyTransfer) error {
	const query = `INSERT INTO custody_transfers (id, evidence_id, from_user_id, to_user_id, requested_by, status, reason, review_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, transfer.ID, transfer.EvidenceID, transfer.FromUserID, transfer.ToUserID,
		transfer.RequestedBy, transfer.Status, transfer.Reason, transfer.ReviewNotes, transfer.CreatedAt); err != nil {
		return fmt.Errorf("insert custody transfer: %w", err)
	}
	return nil
}

// GetByID returns a transfer by identifier.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.CustodyTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM custody_transfers WHERE id = $1 LIMIT 1`
	var t models.CustodyTransfer
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find custody transfer: %w", err)
	}
	return &t, nil
}

// ListPending returns all pending transfers, oldest first.
func (r *TransferRepository) ListPending(ctx context.Context) ([]models.CustodyTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM custody_transfers WHERE status = $1 ORDER BY created_at`
	var transfers []models.CustodyTransfer
	if err := r.db.SelectContext(ctx, &transfers, query, models.TransferStatusPending); err != nil {
		return nil, fmt.Errorf("list pending custody transfers: %w", err)
	}
	return transfers, nil
}

// ListByEvidence returns the transfer history of one evidence item, newest
// first.
func (r *TransferRepository) ListByEvidence(ctx context.Context, evidenceID string) ([]models.CustodyTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM custody_transfers WHERE evidence_id = $1 ORDER BY created_at DESC`
	var transfers []models.CustodyTransfer
	if err := r.db.SelectContext(ctx, &transfers, query, evidenceID); err != nil {
		return nil, fmt.Errorf("list custody transfers by evidence: %w", err)
	}
	return transfers, nil
}

// HasPendingForEvidence reports whether an evidence item already has a
// pending transfer.
func (r *TransferRepository) HasPendingForEvidence(ctx context.Context, evidenceID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM custody_transfers WHERE evidence_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, evidenceID, models.TransferStatusPending); err != nil {
		return false, fmt.Errorf("check pending custody transfer: %w", err)
	}
	return exists, nil
}

// Resolve moves a pending transfer to approved or rejected. The status guard
// in the WHERE clause keeps a transfer from being decided twice.
func (r *TransferRepository) Resolve(ctx context.Context, id, status, reviewNotes string, reviewerID string, at time.Time) error {
	const query = `UPDATE custody_transfers SET status = $2, review_notes = $3, approved_by = $4, approved_at = $5
		WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewNotes, reviewerID, at, models.TransferStatusPending)
	if err != nil {
		return fmt.Errorf("resolve custody transfer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve custody transfer rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
