package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/veridex/custody-api/internal/models"
)

// CaseRepository provides database access for cases, their encryption keys and
// assignment requests.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a new instance of CaseRepository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `id, case_id, title, description, category, status_notes, final_report, conclusion,
	fields_encrypted, status, priority, created_by, invalid_reason, withdraw_reason, close_reason,
	closure_requested, closure_creator_approved, closure_admin_approved, created_at, updated_at`

// CreateWithKey inserts a case together with its encryption key in one
// transaction. The human-readable case identifier is derived from the
// per-day sequence; a unique-violation retry absorbs identifier races.
func (r *CaseRepository) CreateWithKey(ctx context.Context, c *models.Case, key *models.EncryptionKey) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		caseID, err := r.nextCaseID(ctx, c.CreatedAt)
		if err != nil {
			return err
		}
		c.CaseID = caseID
		if err := r.insertWithKey(ctx, c, key); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("create case: exhausted case id attempts: %w", lastErr)
}

func (r *CaseRepository) insertWithKey(ctx context.Context, c *models.Case, key *models.EncryptionKey) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create case: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertCase = `INSERT INTO cases (id, case_id, title, description, category, status_notes, final_report, conclusion,
		fields_encrypted, status, priority, created_by, closure_requested, closure_creator_approved, closure_admin_approved,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	if _, err := tx.ExecContext(ctx, insertCase,
		c.ID, c.CaseID, c.Title, c.Description, c.Category, c.StatusNotes, c.FinalReport, c.Conclusion,
		c.FieldsEncrypted, c.Status, c.Priority, c.CreatedBy,
		c.ClosureRequested, c.ClosureCreatorApproved, c.ClosureAdminApproved,
		c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	const insertKey = `INSERT INTO encryption_keys (id, case_id, key, iv, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertKey, key.ID, key.CaseID, key.Key, key.IV, key.CreatedAt); err != nil {
		return fmt.Errorf("insert encryption key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create case: %w", err)
	}
	return nil
}

func (r *CaseRepository) nextCaseID(ctx context.Context, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	const query = `SELECT COUNT(*) FROM cases WHERE case_id LIKE $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, "CASE"+day+"%"); err != nil {
		return "", fmt.Errorf("count cases for day: %w", err)
	}
	return fmt.Sprintf("CASE%s%04d", day, count+1), nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

// GetByID returns a case by internal identifier.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1 LIMIT 1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by id: %w", err)
	}
	return &c, nil
}

// GetByCaseID returns a case by its human-readable identifier.
func (r *CaseRepository) GetByCaseID(ctx context.Context, caseID string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_id = $1 LIMIT 1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by case id: %w", err)
	}
	return &c, nil
}

// GetKey returns the encryption key owned by a case.
func (r *CaseRepository) GetKey(ctx context.Context, caseID string) (*models.EncryptionKey, error) {
	const query = `SELECT id, case_id, key, iv, created_at FROM encryption_keys WHERE case_id = $1 LIMIT 1`
	var key models.EncryptionKey
	if err := r.db.GetContext(ctx, &key, query, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find encryption key: %w", err)
	}
	return &key, nil
}

// List returns cases matching the filter with a total count.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	baseQuery := `FROM cases WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT case_id FROM case_investigators WHERE user_id = $%d)", len(args)+1))
		args = append(args, filter.AssignedTo)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT `+caseColumns+` %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}

	countQuery := `SELECT COUNT(*) ` + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}
	return cases, total, nil
}

// UpdateFields persists the encrypted text fields and priority of a case.
func (r *CaseRepository) UpdateFields(ctx context.Context, c *models.Case) error {
	const query = `UPDATE cases SET title = $2, description = $3, category = $4, status_notes = $5,
		final_report = $6, conclusion = $7, fields_encrypted = $8, priority = $9, updated_at = $10
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Title, c.Description, c.Category, c.StatusNotes,
		c.FinalReport, c.Conclusion, c.FieldsEncrypted, c.Priority, c.UpdatedAt); err != nil {
		return fmt.Errorf("update case fields: %w", err)
	}
	return nil
}

// UpdateLifecycle persists the status, closure flags and reason columns.
func (r *CaseRepository) UpdateLifecycle(ctx context.Context, c *models.Case) error {
	const query = `UPDATE cases SET status = $2, closure_requested = $3, closure_creator_approved = $4,
		closure_admin_approved = $5, invalid_reason = $6, withdraw_reason = $7, close_reason = $8, updated_at = $9
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Status, c.ClosureRequested, c.ClosureCreatorApproved,
		c.ClosureAdminApproved, c.InvalidReason, c.WithdrawReason, c.CloseReason, c.UpdatedAt); err != nil {
		return fmt.Errorf("update case lifecycle: %w", err)
	}
	return nil
}

// ListInvestigators returns the user ids assigned to a case.
func (r *CaseRepository) ListInvestigators(ctx context.Context, caseID string) ([]string, error) {
	const query = `SELECT user_id FROM case_investigators WHERE case_id = $1 ORDER BY user_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, caseID); err != nil {
		return nil, fmt.Errorf("list case investigators: %w", err)
	}
	return ids, nil
}

// SetInvestigators replaces the assigned investigator set atomically.
func (r *CaseRepository) SetInvestigators(ctx context.Context, caseID string, userIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set investigators: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM case_investigators WHERE case_id = $1`, caseID); err != nil {
		return fmt.Errorf("clear case investigators: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO case_investigators (case_id, user_id) VALUES ($1, $2)`, caseID, userID); err != nil {
			return fmt.Errorf("insert case investigator: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set investigators: %w", err)
	}
	return nil
}

// PromoteStaleOpen moves cases that stayed Open past the cutoff into Pending
// Admin Approval and returns the affected case ids. Used by the background
// sweep only.
func (r *CaseRepository) PromoteStaleOpen(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `UPDATE cases SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at <= $3
		RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.CaseStatusPendingApproval, models.CaseStatusOpen, cutoff); err != nil {
		return nil, fmt.Errorf("promote stale open cases: %w", err)
	}
	return ids, nil
}

// CreateAssignmentRequest persists a pending assignment request and its
// proposed user set.
func (r *CaseRepository) CreateAssignmentRequest(ctx context.Context, req *models.AssignmentRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create assignment request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO assignment_requests (id, case_id, requested_by, request_type, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insert, req.ID, req.CaseID, req.RequestedBy, req.RequestType, req.Status, req.Notes, req.CreatedAt, req.UpdatedAt); err != nil {
		return fmt.Errorf("insert assignment request: %w", err)
	}
	for _, userID := range req.AssignedUsers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO assignment_request_users (request_id, user_id) VALUES ($1, $2)`, req.ID, userID); err != nil {
			return fmt.Errorf("insert assignment request user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create assignment request: %w", err)
	}
	return nil
}

// GetAssignmentRequest returns a request with its proposed user set.
func (r *CaseRepository) GetAssignmentRequest(ctx context.Context, id string) (*models.AssignmentRequest, error) {
	const query = `SELECT id, case_id, requested_by, request_type, status, notes, approved_at, created_at, updated_at
		FROM assignment_requests WHERE id = $1 LIMIT 1`
	var req models.AssignmentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment request: %w", err)
	}
	const usersQuery = `SELECT user_id FROM assignment_request_users WHERE request_id = $1 ORDER BY user_id`
	if err := r.db.SelectContext(ctx, &req.AssignedUsers, usersQuery, id); err != nil {
		return nil, fmt.Errorf("list assignment request users: %w", err)
	}
	return &req, nil
}

// ListPendingAssignmentRequests returns open requests for a case.
func (r *CaseRepository) ListPendingAssignmentRequests(ctx context.Context, caseID string) ([]models.AssignmentRequest, error) {
	const query = `SELECT id, case_id, requested_by, request_type, status, notes, approved_at, created_at, updated_at
		FROM assignment_requests WHERE case_id = $1 AND status = $2 ORDER BY created_at DESC`
	var reqs []models.AssignmentRequest
	if err := r.db.SelectContext(ctx, &reqs, query, caseID, models.AssignmentStatusPendingAdmin); err != nil {
		return nil, fmt.Errorf("list pending assignment requests: %w", err)
	}
	return reqs, nil
}

// UpdateAssignmentRequestStatus stamps the outcome of a request review.
func (r *CaseRepository) UpdateAssignmentRequestStatus(ctx context.Context, id, status string, approvedAt *time.Time) error {
	const query = `UPDATE assignment_requests SET status = $2, approved_at = $3, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, approvedAt); err != nil {
		return fmt.Errorf("update assignment request status: %w", err)
	}
	return nil
}
