package models

import "time"

// CaseStatus enumerates the case lifecycle states.
type CaseStatus string

const (
	CaseStatusOpen            CaseStatus = "Open"
	CaseStatusPendingApproval CaseStatus = "Pending Admin Approval"
	CaseStatusUnderReview     CaseStatus = "Under Review"
	CaseStatusClosed          CaseStatus = "Closed"
	CaseStatusArchived        CaseStatus = "Archived"
	CaseStatusWithdrawn       CaseStatus = "Withdrawn"
	CaseStatusInvalid         CaseStatus = "Invalid"
)

// Terminal reports whether no further lifecycle transitions are expected.
// Closed is not terminal: it can still be archived or reopened.
func (s CaseStatus) Terminal() bool {
	return s == CaseStatusArchived || s == CaseStatusWithdrawn || s == CaseStatusInvalid
}

// CasePriority enumerates case priorities.
type CasePriority string

const (
	PriorityLow      CasePriority = "low"
	PriorityMedium   CasePriority = "medium"
	PriorityHigh     CasePriority = "high"
	PriorityCritical CasePriority = "critical"
)

// Case is the central entity. The six sensitive text fields are stored as
// base64-encoded AES-CBC ciphertext; FieldsEncrypted records whether the
// in-memory values are sealed, so sealing twice is a no-op and plaintext is
// never probed by attempting decryption.
type Case struct {
	ID          string `db:"id" json:"id"`
	CaseID      string `db:"case_id" json:"case_id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
	StatusNotes string `db:"status_notes" json:"status_notes"`
	FinalReport string `db:"final_report" json:"final_report"`
	Conclusion  string `db:"conclusion" json:"conclusion"`

	FieldsEncrypted bool         `db:"fields_encrypted" json:"-"`
	Status          CaseStatus   `db:"status" json:"status"`
	Priority        CasePriority `db:"priority" json:"priority"`
	CreatedBy       string       `db:"created_by" json:"created_by"`

	InvalidReason  *string `db:"invalid_reason" json:"invalid_reason,omitempty"`
	WithdrawReason *string `db:"withdraw_reason" json:"withdraw_reason,omitempty"`
	CloseReason    *string `db:"close_reason" json:"close_reason,omitempty"`

	ClosureRequested       bool `db:"closure_requested" json:"closure_requested"`
	ClosureCreatorApproved bool `db:"closure_creator_approved" json:"closure_creator_approved"`
	ClosureAdminApproved   bool `db:"closure_admin_approved" json:"closure_admin_approved"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	AssignedInvestigators []string `db:"-" json:"assigned_investigators,omitempty"`
}

// EncryptionKey holds the per-case AES-256 key and IV. Generated exactly once
// at case creation and immutable afterwards; cascades with its case.
type EncryptionKey struct {
	ID        string    `db:"id" json:"id"`
	CaseID    string    `db:"case_id" json:"case_id"`
	Key       []byte    `db:"key" json:"-"`
	IV        []byte    `db:"iv" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentRequest statuses.
const (
	AssignmentStatusPendingAdmin = "pending_admin"
	AssignmentStatusApproved     = "approved"
	AssignmentStatusRejected     = "rejected"
)

// AssignmentRequest request types.
const (
	AssignmentTypeAssignment = "assignment"
	AssignmentTypeHandover   = "handover"
)

// AssignmentRequest is a proposed investigator assignment or custody handover
// awaiting administrator approval.
type AssignmentRequest struct {
	ID          string     `db:"id" json:"id"`
	CaseID      string     `db:"case_id" json:"case_id"`
	RequestedBy string     `db:"requested_by" json:"requested_by"`
	RequestType string     `db:"request_type" json:"request_type"`
	Status      string     `db:"status" json:"status"`
	Notes       string     `db:"notes" json:"notes"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	AssignedUsers []string `db:"-" json:"assigned_users"`
}

// CaseAuditLog action names shared by the case lifecycle operations.
const (
	AuditActionCaseCreated        = "Created case"
	AuditActionCaseViewed         = "Viewed case"
	AuditActionCaseEdited         = "Edited case"
	AuditActionAssignmentProposed = "Proposed investigator assignment"
	AuditActionAssignmentApproved = "Approved investigator assignment"
	AuditActionAssignmentRejected = "Rejected investigator assignment"
	AuditActionAssignedDirect     = "Directly assigned investigators"
	AuditActionClosureRequested   = "Requested case closure"
	AuditActionClosureCreatorOK   = "Creator approved case closure"
	AuditActionClosureAdminOK     = "Admin approved case closure"
	AuditActionClosureRejected    = "Rejected case closure - reset to pending"
	AuditActionCaseClosed         = "Case closed after both approvals"
	AuditActionCaseArchived       = "Archived case"
	AuditActionCaseWithdrawn      = "Withdrawn case - case is now read-only"
	AuditActionCaseInvalidated    = "Marked case invalid"
	AuditActionCaseReopened       = "Reopened case for review"
	AuditActionAutoEscalated      = "Auto-escalated to pending admin approval"
	AuditActionLogin              = "Logged in"
	AuditActionLogout             = "Logged out"
)

// CaseAuditLog is the append-only chain-of-custody trail for case actions.
// Rows are only ever inserted; UserID is nullable so the trail survives user
// deletion.
type CaseAuditLog struct {
	ID        string    `db:"id" json:"id"`
	CaseID    *string   `db:"case_id" json:"case_id,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	UserName  string    `db:"user_name" json:"user_name"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// CaseFilter captures filtering criteria for listing cases.
type CaseFilter struct {
	Status     *CaseStatus
	Priority   *CasePriority
	CreatedBy  string
	AssignedTo string
	Page       int
	PageSize   int
}

// AuditFilter captures the read-only projections over audit trails.
type AuditFilter struct {
	CaseID       string
	EvidenceID   string
	UserID       string
	ActionLike   string
	From         *time.Time
	To           *time.Time
	OldestFirst  bool
	ExcludeMedia bool
	Limit        int
}
