package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/veridex/custody-api/internal/models"
)

// AuditRepository provides append-only access to the audit trails. There are
// deliberately no update or delete methods here: rows are inserted once and
// read back through filtered projections.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// InsertCaseLog appends a case audit row.
func (r *AuditRepository) InsertCaseLog(ctx context.Context, entry *models.CaseAuditLog) error {
	const query = `INSERT INTO case_audit_logs (id, case_id, user_id, user_name, action, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.CaseID, entry.UserID, entry.UserName, entry.Action, entry.Details, entry.Timestamp); err != nil {
		return fmt.Errorf("insert case audit log: %w", err)
	}
	return nil
}

// InsertEvidenceLog appends an evidence audit row.
func (r *AuditRepository) InsertEvidenceLog(ctx context.Context, entry *models.EvidenceAuditLog) error {
	const query = `INSERT INTO evidence_audit_logs (id, evidence_id, user_id, user_name, action, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.EvidenceID, entry.UserID, entry.UserName, entry.Action, entry.Details, entry.Timestamp); err != nil {
		return fmt.Errorf("insert evidence audit log: %w", err)
	}
	return nil
}

// InsertCustodyLog appends a custody trail row.
func (r *AuditRepository) InsertCustodyLog(ctx context.Context, entry *models.CustodyLog) error {
	const query = `INSERT INTO custody_logs (id, evidence_id, case_id, user_id, user_name, action, details, from_location_id, to_location_id, to_user_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.EvidenceID, entry.CaseID, entry.UserID, entry.UserName,
		entry.Action, entry.Details, entry.FromLocationID, entry.ToLocationID, entry.ToUserID, entry.Timestamp); err != nil {
		return fmt.Errorf("insert custody log: %w", err)
	}
	return nil
}

// InsertStorageLog appends a storage trail row.
func (r *AuditRepository) InsertStorageLog(ctx context.Context, entry *models.StorageLog) error {
	const query = `INSERT INTO storage_logs (id, case_storage_id, user_id, user_name, action, details, ip_address, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.CaseStorageID, entry.UserID, entry.UserName,
		entry.Action, entry.Details, entry.IPAddress, entry.Timestamp); err != nil {
		return fmt.Errorf("insert storage log: %w", err)
	}
	return nil
}

// mediaActions are the case-trail action names excluded from case exports;
// media activity lives in the evidence trail.
var mediaActions = []string{
	models.AuditActionEvidenceViewed,
	models.AuditActionEvidenceDownloaded,
	models.AuditActionEvidenceDescEdited,
	models.AuditActionEvidenceInvalidated,
}

// ListCaseLogs returns case audit rows matching the filter.
func (r *AuditRepository) ListCaseLogs(ctx context.Context, filter models.AuditFilter) ([]models.CaseAuditLog, error) {
	query := `SELECT id, case_id, user_id, user_name, action, details, timestamp FROM case_audit_logs`
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.CaseID != "" {
		conditions = append(conditions, fmt.Sprintf("case_id = $%d", argPos))
		args = append(args, filter.CaseID)
		argPos++
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filter.UserID)
		argPos++
	}
	if filter.ActionLike != "" {
		conditions = append(conditions, fmt.Sprintf("action ILIKE $%d", argPos))
		args = append(args, "%"+filter.ActionLike+"%")
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}
	if filter.ExcludeMedia {
		placeholders := make([]string, 0, len(mediaActions))
		for _, action := range mediaActions {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argPos))
			args = append(args, action)
			argPos++
		}
		conditions = append(conditions, fmt.Sprintf("action NOT IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.OldestFirst {
		query += " ORDER BY timestamp ASC"
	} else {
		query += " ORDER BY timestamp DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
	}

	var logs []models.CaseAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list case audit logs: %w", err)
	}
	return logs, nil
}

// ListEvidenceLogs returns evidence audit rows matching the filter.
func (r *AuditRepository) ListEvidenceLogs(ctx context.Context, filter models.AuditFilter) ([]models.EvidenceAuditLog, error) {
	query := `SELECT id, evidence_id, user_id, user_name, action, details, timestamp FROM evidence_audit_logs`
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.EvidenceID != "" {
		conditions = append(conditions, fmt.Sprintf("evidence_id = $%d", argPos))
		args = append(args, filter.EvidenceID)
		argPos++
	}
	if filter.CaseID != "" {
		conditions = append(conditions, fmt.Sprintf("evidence_id IN (SELECT id FROM evidences WHERE case_id = $%d)", argPos))
		args = append(args, filter.CaseID)
		argPos++
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filter.UserID)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.OldestFirst {
		query += " ORDER BY timestamp ASC"
	} else {
		query += " ORDER BY timestamp DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
	}

	var logs []models.EvidenceAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list evidence audit logs: %w", err)
	}
	return logs, nil
}

// ListCustodyLogs returns custody rows for one evidence item, oldest first,
// which is the order chain-of-custody reports present them in.
func (r *AuditRepository) ListCustodyLogs(ctx context.Context, evidenceID string) ([]models.CustodyLog, error) {
	const query = `SELECT id, evidence_id, case_id, user_id, user_name, action, details, from_location_id, to_location_id, to_user_id, timestamp
		FROM custody_logs WHERE evidence_id = $1 ORDER BY timestamp ASC`
	var logs []models.CustodyLog
	if err := r.db.SelectContext(ctx, &logs, query, evidenceID); err != nil {
		return nil, fmt.Errorf("list custody logs: %w", err)
	}
	return logs, nil
}

// ListRecentCustodyLogs returns the newest custody rows across all evidence.
func (r *AuditRepository) ListRecentCustodyLogs(ctx context.Context, limit int) ([]models.CustodyLog, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, evidence_id, case_id, user_id, user_name, action, details, from_location_id, to_location_id, to_user_id, timestamp
		FROM custody_logs ORDER BY timestamp DESC LIMIT $1`
	var logs []models.CustodyLog
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list recent custody logs: %w", err)
	}
	return logs, nil
}

// ListStorageLogs returns storage rows for one case storage, newest first.
func (r *AuditRepository) ListStorageLogs(ctx context.Context, caseStorageID string, limit int) ([]models.StorageLog, error) {
	query := `SELECT id, case_storage_id, user_id, user_name, action, details, ip_address, timestamp
		FROM storage_logs WHERE case_storage_id = $1 ORDER BY timestamp DESC`
	args := []interface{}{caseStorageID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	var logs []models.StorageLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list storage logs: %w", err)
	}
	return logs, nil
}

// CountByAction returns per-action totals over the case trail.
func (r *AuditRepository) CountByAction(ctx context.Context) (map[string]int, error) {
	const query = `SELECT action, COUNT(*) AS total FROM case_audit_logs GROUP BY action`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count audit logs by action: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var total int
		if err := rows.Scan(&action, &total); err != nil {
			return nil, fmt.Errorf("scan audit action count: %w", err)
		}
		counts[action] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit action counts: %w", err)
	}
	return counts, nil
}
