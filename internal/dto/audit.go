package dto

import "github.com/veridex/custody-api/internal/models"

// AuditQuery captures query parameters for audit trail projections.
type AuditQuery struct {
	CaseID     string `form:"caseId"`
	EvidenceID string `form:"evidenceId"`
	UserID     string `form:"userId"`
	Action     string `form:"action"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
}

// CombinedAuditView merges the three trails for the auditor overview.
type CombinedAuditView struct {
	CaseLogs     []models.CaseAuditLog     `json:"case_logs"`
	EvidenceLogs []models.EvidenceAuditLog `json:"evidence_logs"`
	CustodyLogs  []models.CustodyLog       `json:"custody_logs"`
}

// IntegrityReport summarises verification results for a case.
type IntegrityReport struct {
	CaseID        string         `json:"case_id"`
	TotalEvidence int            `json:"total_evidence"`
	IntactCount   int            `json:"intact_count"`
	TamperedCount int            `json:"tampered_count"`
	Results       []VerifyResult `json:"results"`
}

// CreateExportRequest enqueues an asynchronous audit export.
type CreateExportRequest struct {
	Type       models.ExportType   `json:"type" validate:"required,oneof=case_audit evidence_audit chain_of_custody"`
	Format     models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	CaseID     string              `json:"case_id"`
	EvidenceID string              `json:"evidence_id"`
}

// ExportJobResponse enriches a job with its signed download URL when ready.
type ExportJobResponse struct {
	models.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}
