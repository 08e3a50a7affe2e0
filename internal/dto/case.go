package dto

import "github.com/veridex/custody-api/internal/models"

// CreateCaseRequest carries the plaintext fields of a new case.
type CreateCaseRequest struct {
	Title       string              `json:"title" validate:"required,max=255"`
	Description string              `json:"description" validate:"required"`
	Category    string              `json:"category" validate:"required,max=100"`
	Priority    models.CasePriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// UpdateCaseRequest carries editable case fields. Nil pointers leave the
// current value untouched.
type UpdateCaseRequest struct {
	Title       *string              `json:"title" validate:"omitempty,max=255"`
	Description *string              `json:"description"`
	Category    *string              `json:"category" validate:"omitempty,max=100"`
	StatusNotes *string              `json:"status_notes"`
	FinalReport *string              `json:"final_report"`
	Conclusion  *string              `json:"conclusion"`
	Priority    *models.CasePriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// CaseDetail is a case with its sensitive fields decrypted for an authorized
// reader.
type CaseDetail struct {
	ID                    string              `json:"id"`
	CaseID                string              `json:"case_id"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	Category              string              `json:"category"`
	StatusNotes           string              `json:"status_notes,omitempty"`
	FinalReport           string              `json:"final_report,omitempty"`
	Conclusion            string              `json:"conclusion,omitempty"`
	Status                models.CaseStatus   `json:"status"`
	Priority              models.CasePriority `json:"priority"`
	CreatedBy             string              `json:"created_by"`
	AssignedInvestigators []string            `json:"assigned_investigators"`
	ClosureRequested      bool                `json:"closure_requested"`
	ClosureApproved       bool                `json:"closure_approved"`
	CreatedAt             string              `json:"created_at"`
	UpdatedAt             string              `json:"updated_at"`
}

// CaseListFilter captures query parameters for listing cases.
type CaseListFilter struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ProposeAssignmentRequest proposes investigators for a case.
type ProposeAssignmentRequest struct {
	InvestigatorIDs []string `json:"investigator_ids" validate:"required,min=1,dive,required"`
	Notes           string   `json:"notes"`
}

// DirectAssignmentRequest is the admin path that bypasses the approval queue.
type DirectAssignmentRequest struct {
	InvestigatorIDs []string `json:"investigator_ids" validate:"required,min=1,dive,required"`
}

// ReasonRequest carries the optional free-text reason for withdraw, invalidate
// and close operations.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ClosureDecisionRequest approves or rejects a pending closure.
type ClosureDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}
