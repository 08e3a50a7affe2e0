package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/veridex/custody-api/internal/models"
)

// StorageRepository provides database access for case storages, storage
// locations, custodian assignments and evidence storage links.
type StorageRepository struct {
	db *sqlx.DB
}

// NewStorageRepository creates a new instance of StorageRepository.
func NewStorageRepository(db *sqlx.DB) *StorageRepository {
	return &StorageRepository{db: db}
}

const storageColumns = `id, case_id, storage_name, storage_path, encryption_key, encryption_iv, is_locked, is_active, created_at, updated_at`

// Provision inserts a case storage together with its primary location in one
// transaction.
func (r *StorageRepository) Provision(ctx context.Context, storage *models.CaseStorage, location *models.StorageLocation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision storage: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertStorage = `INSERT INTO case_storages (id, case_id, storage_name, storage_path, encryption_key, encryption_iv, is_locked, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, insertStorage, storage.ID, storage.CaseID, storage.StorageName, storage.StoragePath,
		storage.Key, storage.IV, storage.IsLocked, storage.IsActive, storage.CreatedAt, storage.UpdatedAt); err != nil {
		return fmt.Errorf("insert case storage: %w", err)
	}

	const insertLocation = `INSERT INTO storage_locations (id, name, location_type, capacity, used_space, is_active, managed_by, case_storage_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, insertLocation, location.ID, location.Name, location.LocationType, location.Capacity,
		location.UsedSpace, location.IsActive, location.ManagedBy, location.CaseStorageID, location.CreatedAt, location.UpdatedAt); err != nil {
		return fmt.Errorf("insert storage location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provision storage: %w", err)
	}
	return nil
}

// GetByCaseID returns the storage owned by a case.
func (r *StorageRepository) GetByCaseID(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	query := `SELECT ` + storageColumns + ` FROM case_storages WHERE case_id = $1 LIMIT 1`
	var s models.CaseStorage
	if err := r.db.GetContext(ctx, &s, query, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case storage: %w", err)
	}
	return &s, nil
}

// GetByID returns a case storage by identifier.
func (r *StorageRepository) GetByID(ctx context.Context, id string) (*models.CaseStorage, error) {
	query := `SELECT ` + storageColumns + ` FROM case_storages WHERE id = $1 LIMIT 1`
	var s models.CaseStorage
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case storage by id: %w", err)
	}
	return &s, nil
}

// ListActive returns all active case storages.
func (r *StorageRepository) ListActive(ctx context.Context) ([]models.CaseStorage, error) {
	query := `SELECT ` + storageColumns + ` FROM case_storages WHERE is_active = TRUE ORDER BY created_at DESC`
	var storages []models.CaseStorage
	if err := r.db.SelectContext(ctx, &storages, query); err != nil {
		return nil, fmt.Errorf("list active case storages: %w", err)
	}
	return storages, nil
}

// SetLocked flips the storage lock flag.
func (r *StorageRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	const query = `UPDATE case_storages SET is_locked = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, locked); err != nil {
		return fmt.Errorf("set storage locked: %w", err)
	}
	return nil
}

// ListLocations returns the locations beneath a case storage.
func (r *StorageRepository) ListLocations(ctx context.Context, caseStorageID string) ([]models.StorageLocation, error) {
	const query = `SELECT id, name, location_type, capacity, used_space, is_active, managed_by, case_storage_id, created_at, updated_at
		FROM storage_locations WHERE case_storage_id = $1 ORDER BY name`
	var locations []models.StorageLocation
	if err := r.db.SelectContext(ctx, &locations, query, caseStorageID); err != nil {
		return nil, fmt.Errorf("list storage locations: %w", err)
	}
	return locations, nil
}

// PrimaryLocation returns the first active location of a case storage.
func (r *StorageRepository) PrimaryLocation(ctx context.Context, caseStorageID string) (*models.StorageLocation, error) {
	const query = `SELECT id, name, location_type, capacity, used_space, is_active, managed_by, case_storage_id, created_at, updated_at
		FROM storage_locations WHERE case_storage_id = $1 AND is_active = TRUE ORDER BY created_at LIMIT 1`
	var location models.StorageLocation
	if err := r.db.GetContext(ctx, &location, query, caseStorageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find primary storage location: %w", err)
	}
	return &location, nil
}

// AddUsedSpace adds to the capacity accounting of a location.
func (r *StorageRepository) AddUsedSpace(ctx context.Context, locationID string, delta int64) error {
	const query = `UPDATE storage_locations SET used_space = used_space + $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, locationID, delta); err != nil {
		return fmt.Errorf("add used space: %w", err)
	}
	return nil
}

// AssignLeastLoaded selects the active custodian with the fewest active
// assignments and binds them to the storage, all inside one transaction. The
// candidate row is locked so two concurrent provisioning calls cannot both
// pick the same least-loaded custodian. Ties break on user id, which keeps
// selection deterministic. Returns nil when no custodian exists.
func (r *StorageRepository) AssignLeastLoaded(ctx context.Context, caseStorageID string, assignedBy *string, reason string, now time.Time) (*models.CustodianAssignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assign custodian: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const pick = `SELECT u.id FROM users u
		WHERE u.role = 'custodian' AND u.active = TRUE
		ORDER BY (SELECT COUNT(*) FROM custodian_assignments ca WHERE ca.custodian_id = u.id AND ca.is_active = TRUE), u.id
		LIMIT 1
		FOR UPDATE OF u`
	var custodianID string
	if err := tx.GetContext(ctx, &custodianID, pick); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pick least loaded custodian: %w", err)
	}

	assignment := &models.CustodianAssignment{
		ID:               uuid.NewString(),
		CaseStorageID:    caseStorageID,
		CustodianID:      custodianID,
		AssignedBy:       assignedBy,
		AssignedAt:       now,
		IsActive:         true,
		AssignmentReason: reason,
	}
	const insert = `INSERT INTO custodian_assignments (id, case_storage_id, custodian_id, assigned_by, assigned_at, is_active, assignment_reason, deactivation_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '')`
	if _, err := tx.ExecContext(ctx, insert, assignment.ID, assignment.CaseStorageID, assignment.CustodianID,
		assignment.AssignedBy, assignment.AssignedAt, assignment.IsActive, assignment.AssignmentReason); err != nil {
		return nil, fmt.Errorf("insert custodian assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign custodian: %w", err)
	}
	return assignment, nil
}

const assignmentColumns = `id, case_storage_id, custodian_id, assigned_by, assigned_at, is_active, deactivated_at, deactivated_by, deactivation_reason, assignment_reason`

// ActiveAssignment returns the active custodian assignment of a storage.
func (r *StorageRepository) ActiveAssignment(ctx context.Context, caseStorageID string) (*models.CustodianAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM custodian_assignments WHERE case_storage_id = $1 AND is_active = TRUE LIMIT 1`
	var a models.CustodianAssignment
	if err := r.db.GetContext(ctx, &a, query, caseStorageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active custodian assignment: %w", err)
	}
	return &a, nil
}

// ListAssignments returns the full assignment history of a storage.
func (r *StorageRepository) ListAssignments(ctx context.Context, caseStorageID string) ([]models.CustodianAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM custodian_assignments WHERE case_storage_id = $1 ORDER BY assigned_at DESC`
	var assignments []models.CustodianAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, caseStorageID); err != nil {
		return nil, fmt.Errorf("list custodian assignments: %w", err)
	}
	return assignments, nil
}

// CountActiveByCustodian returns the active assignment count of one custodian.
func (r *StorageRepository) CountActiveByCustodian(ctx context.Context, custodianID string) (int, error) {
	const query = `SELECT COUNT(*) FROM custodian_assignments WHERE custodian_id = $1 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, custodianID); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

// Reassign deactivates the current assignment and creates a new one in a
// single transaction.
func (r *StorageRepository) Reassign(ctx context.Context, caseStorageID, custodianID string, actorID *string, reason string, now time.Time) (*models.CustodianAssignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reassign custodian: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deactivate = `UPDATE custodian_assignments SET is_active = FALSE, deactivated_at = $2, deactivated_by = $3, deactivation_reason = $4
		WHERE case_storage_id = $1 AND is_active = TRUE`
	if _, err := tx.ExecContext(ctx, deactivate, caseStorageID, now, actorID, reason); err != nil {
		return nil, fmt.Errorf("deactivate custodian assignment: %w", err)
	}

	assignment := &models.CustodianAssignment{
		ID:               uuid.NewString(),
		CaseStorageID:    caseStorageID,
		CustodianID:      custodianID,
		AssignedBy:       actorID,
		AssignedAt:       now,
		IsActive:         true,
		AssignmentReason: reason,
	}
	const insert = `INSERT INTO custodian_assignments (id, case_storage_id, custodian_id, assigned_by, assigned_at, is_active, assignment_reason, deactivation_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '')`
	if _, err := tx.ExecContext(ctx, insert, assignment.ID, assignment.CaseStorageID, assignment.CustodianID,
		assignment.AssignedBy, assignment.AssignedAt, assignment.IsActive, assignment.AssignmentReason); err != nil {
		return nil, fmt.Errorf("insert custodian assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reassign custodian: %w", err)
	}
	return assignment, nil
}

// CreateEvidenceLink binds an evidence item to a storage location.
func (r *StorageRepository) CreateEvidenceLink(ctx context.Context, link *models.EvidenceStorage) error {
	const query = `INSERT INTO evidence_storages (id, evidence_id, storage_location_id, stored_at, last_accessed, access_count)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, link.ID, link.EvidenceID, link.StorageLocationID, link.StoredAt, link.LastAccessed, link.AccessCount); err != nil {
		return fmt.Errorf("insert evidence storage link: %w", err)
	}
	return nil
}

// GetEvidenceLink returns the storage link of an evidence item.
func (r *StorageRepository) GetEvidenceLink(ctx context.Context, evidenceID string) (*models.EvidenceStorage, error) {
	const query = `SELECT id, evidence_id, storage_location_id, stored_at, last_accessed, access_count
		FROM evidence_storages WHERE evidence_id = $1 LIMIT 1`
	var link models.EvidenceStorage
	if err := r.db.GetContext(ctx, &link, query, evidenceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find evidence storage link: %w", err)
	}
	return &link, nil
}

// RecordAccess bumps the access bookkeeping of an evidence storage link.
func (r *StorageRepository) RecordAccess(ctx context.Context, evidenceID string, at time.Time) error {
	const query = `UPDATE evidence_storages SET last_accessed = $2, access_count = access_count + 1 WHERE evidence_id = $1`
	if _, err := r.db.ExecContext(ctx, query, evidenceID, at); err != nil {
		return fmt.Errorf("record evidence access: %w", err)
	}
	return nil
}

// CountEvidenceLinks returns the total number of evidence-to-location links.
func (r *StorageRepository) CountEvidenceLinks(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM evidence_storages`); err != nil {
		return 0, fmt.Errorf("count evidence storage links: %w", err)
	}
	return count, nil
}
