package dto

import "github.com/veridex/custody-api/internal/models"

// UploadEvidenceRequest contains metadata submitted alongside a file upload.
type UploadEvidenceRequest struct {
	Description string           `form:"description" json:"description" validate:"required,max=255"`
	MediaType   models.MediaType `form:"mediaType" json:"mediaType" validate:"omitempty,oneof=image video audio document text other"`
}

// UpdateEvidenceDescriptionRequest amends evidence metadata; the underlying
// file bytes and hashes never change.
type UpdateEvidenceDescriptionRequest struct {
	Description string `json:"description" validate:"required,max=255"`
}

// EvidenceMetadata is the evidence projection returned by the metadata API.
type EvidenceMetadata struct {
	ID               string             `json:"id"`
	CaseID           string             `json:"case_id"`
	Description      string             `json:"description"`
	MediaType        models.MediaType   `json:"media_type"`
	Status           models.MediaStatus `json:"status"`
	SHA256           string             `json:"sha256"`
	MD5              string             `json:"md5"`
	OriginalFilename string             `json:"original_filename"`
	SizeBytes        int64              `json:"size_bytes"`
	UploadedBy       *string            `json:"uploaded_by,omitempty"`
	UploadedAt       string             `json:"uploaded_at"`
}

// VerifyResult reports an integrity verification outcome.
type VerifyResult struct {
	EvidenceID   string `json:"evidence_id"`
	StoredSHA256 string `json:"stored_sha256"`
	ActualSHA256 string `json:"actual_sha256"`
	Intact       bool   `json:"intact"`
}
