package models

import "time"

// CaseStorage is the per-case evidence container. It carries its own AES key
// and IV, independent of the case field key, and starts locked and active.
type CaseStorage struct {
	ID          string    `db:"id" json:"id"`
	CaseID      string    `db:"case_id" json:"case_id"`
	StorageName string    `db:"storage_name" json:"storage_name"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	Key         []byte    `db:"encryption_key" json:"-"`
	IV          []byte    `db:"encryption_iv" json:"-"`
	IsLocked    bool      `db:"is_locked" json:"is_locked"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StorageLocationType enumerates physical, digital and cloud pools.
type StorageLocationType string

const (
	LocationPhysical StorageLocationType = "physical"
	LocationDigital  StorageLocationType = "digital"
	LocationCloud    StorageLocationType = "cloud"
)

// StorageLocation is a storage pool with capacity accounting, optionally bound
// to a specific case storage.
type StorageLocation struct {
	ID            string              `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	LocationType  StorageLocationType `db:"location_type" json:"location_type"`
	Capacity      *int64              `db:"capacity" json:"capacity,omitempty"`
	UsedSpace     int64               `db:"used_space" json:"used_space"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	ManagedBy     *string             `db:"managed_by" json:"managed_by,omitempty"`
	CaseStorageID *string             `db:"case_storage_id" json:"case_storage_id,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// AvailableSpace returns remaining capacity, or nil when capacity is unbounded.
func (l *StorageLocation) AvailableSpace() *int64 {
	if l.Capacity == nil {
		return nil
	}
	free := *l.Capacity - l.UsedSpace
	return &free
}

// CustodianAssignment records which custodian holds a case storage. Exactly
// one active assignment per storage; history is preserved through the
// deactivation fields.
type CustodianAssignment struct {
	ID                 string     `db:"id" json:"id"`
	CaseStorageID      string     `db:"case_storage_id" json:"case_storage_id"`
	CustodianID        string     `db:"custodian_id" json:"custodian_id"`
	AssignedBy         *string    `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt         time.Time  `db:"assigned_at" json:"assigned_at"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	DeactivatedAt      *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	DeactivatedBy      *string    `db:"deactivated_by" json:"deactivated_by,omitempty"`
	DeactivationReason string     `db:"deactivation_reason" json:"deactivation_reason"`
	AssignmentReason   string     `db:"assignment_reason" json:"assignment_reason"`
}

// CustodyTransfer statuses.
const (
	TransferStatusPending  = "pending"
	TransferStatusApproved = "approved"
	TransferStatusRejected = "rejected"
)

// CustodyTransfer models a pending handover of a single evidence item's
// custody between two users; only a custodian may approve it.
type CustodyTransfer struct {
	ID          string     `db:"id" json:"id"`
	EvidenceID  string     `db:"evidence_id" json:"evidence_id"`
	FromUserID  string     `db:"from_user_id" json:"from_user_id"`
	ToUserID    string     `db:"to_user_id" json:"to_user_id"`
	RequestedBy string     `db:"requested_by" json:"requested_by"`
	Status      string     `db:"status" json:"status"`
	Reason      string     `db:"reason" json:"reason"`
	ReviewNotes string     `db:"review_notes" json:"review_notes"`
	ApprovedBy  *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// EvidenceStorage links an evidence item to the location holding it and keeps
// access bookkeeping.
type EvidenceStorage struct {
	ID                string    `db:"id" json:"id"`
	EvidenceID        string    `db:"evidence_id" json:"evidence_id"`
	StorageLocationID string    `db:"storage_location_id" json:"storage_location_id"`
	StoredAt          time.Time `db:"stored_at" json:"stored_at"`
	LastAccessed      time.Time `db:"last_accessed" json:"last_accessed"`
	AccessCount       int       `db:"access_count" json:"access_count"`
}

// CustodyLog actions.
const (
	CustodyActionStored         = "stored"
	CustodyActionRetrieved      = "retrieved"
	CustodyActionTransferred    = "transferred"
	CustodyActionTransferDenied = "transfer_rejected"
	CustodyActionVerified       = "verified"
	CustodyActionArchivedLog    = "archived"
	CustodyActionViewed         = "viewed"
	CustodyActionDownloaded     = "downloaded"
	CustodyActionMoved          = "moved"
)

// CustodyLog is the append-only evidence-level custody trail, keyed by both
// evidence and case.
type CustodyLog struct {
	ID             string    `db:"id" json:"id"`
	EvidenceID     string    `db:"evidence_id" json:"evidence_id"`
	CaseID         string    `db:"case_id" json:"case_id"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	UserName       string    `db:"user_name" json:"user_name"`
	Action         string    `db:"action" json:"action"`
	Details        string    `db:"details" json:"details"`
	FromLocationID *string   `db:"from_location_id" json:"from_location_id,omitempty"`
	ToLocationID   *string   `db:"to_location_id" json:"to_location_id,omitempty"`
	ToUserID       *string   `db:"to_user_id" json:"to_user_id,omitempty"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
}

// StorageLog actions.
const (
	StorageActionCreated         = "created"
	StorageActionUpload          = "upload"
	StorageActionAccess          = "access"
	StorageActionLock            = "lock"
	StorageActionUnlock          = "unlock"
	StorageActionCustodianChange = "custodian_change"
	StorageActionTransfer        = "transfer"
	StorageActionDeleteAttempt   = "delete_attempt"
)

// StorageLog is the append-only storage-level trail.
type StorageLog struct {
	ID            string    `db:"id" json:"id"`
	CaseStorageID string    `db:"case_storage_id" json:"case_storage_id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	UserName      string    `db:"user_name" json:"user_name"`
	Action        string    `db:"action" json:"action"`
	Details       string    `db:"details" json:"details"`
	IPAddress     string    `db:"ip_address" json:"ip_address"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}
