package dto

import "github.com/veridex/custody-api/internal/models"

// RequestTransferRequest opens a custody handover for one evidence item.
type RequestTransferRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// ReviewTransferRequest approves or rejects a pending transfer.
type ReviewTransferRequest struct {
	Decision    string `json:"decision" validate:"required,oneof=approve reject"`
	ReviewNotes string `json:"review_notes"`
}

// ReassignCustodianRequest replaces the active custodian of a case storage.
type ReassignCustodianRequest struct {
	CustodianID string `json:"custodian_id" validate:"required"`
	Reason      string `json:"reason"`
}

// StorageDetail combines a case storage with its current custodian and
// location inventory.
type StorageDetail struct {
	Storage          models.CaseStorage           `json:"storage"`
	CurrentCustodian *string                      `json:"current_custodian,omitempty"`
	Locations        []models.StorageLocation     `json:"locations"`
	Assignments      []models.CustodianAssignment `json:"assignments"`
	EvidenceCount    int                          `json:"evidence_count"`
}

// CustodyDashboard aggregates counters for the custodian landing view.
type CustodyDashboard struct {
	ActiveStorages      int                 `json:"active_storages"`
	MyActiveAssignments int                 `json:"my_active_assignments"`
	TotalEvidence       int                 `json:"total_evidence"`
	EvidenceWithStorage int                 `json:"evidence_with_storage"`
	PendingTransfers    int                 `json:"pending_transfers"`
	RecentCustodyLogs   []models.CustodyLog `json:"recent_custody_logs"`
}
