package models

import "time"

// MediaType enumerates the recognised evidence media kinds.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
	MediaTypeText     MediaType = "text"
	MediaTypeOther    MediaType = "other"
)

// MediaStatus enumerates evidence validity states.
type MediaStatus string

const (
	MediaStatusValid    MediaStatus = "Valid"
	MediaStatusInvalid  MediaStatus = "Invalid"
	MediaStatusArchived MediaStatus = "Archived"
)

// Evidence is an encrypted file attached to a case. Content and hashes are
// immutable after upload; only Description and Status may change, and every
// change is audit-logged with old and new values. SHA256 is computed over the
// raw bytes before encryption and is the permanent evidentiary fingerprint.
type Evidence struct {
	ID               string      `db:"id" json:"id"`
	CaseID           string      `db:"case_id" json:"case_id"`
	BlobKey          string      `db:"blob_key" json:"-"`
	OriginalFilename string      `db:"original_filename" json:"original_filename"`
	Description      string      `db:"description" json:"description"`
	MediaType        MediaType   `db:"media_type" json:"media_type"`
	Status           MediaStatus `db:"status" json:"status"`
	SHA256           string      `db:"sha256" json:"sha256"`
	MD5              string      `db:"md5" json:"md5"`
	SizeBytes        int64       `db:"size_bytes" json:"size_bytes"`
	UploadedBy       *string     `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt       time.Time   `db:"uploaded_at" json:"uploaded_at"`
}

// EvidenceAuditLog actions.
const (
	AuditActionEvidenceUploaded    = "Evidence Uploaded"
	AuditActionEvidenceViewed      = "Viewed media"
	AuditActionEvidenceDownloaded  = "Downloaded media"
	AuditActionEvidenceDescEdited  = "Edited media description"
	AuditActionEvidenceInvalidated = "Marked media invalid"
	AuditActionEvidenceVerified    = "Verified evidence integrity"
)

// EvidenceAuditLog is the append-only trail scoped to a single evidence item.
type EvidenceAuditLog struct {
	ID         string    `db:"id" json:"id"`
	EvidenceID string    `db:"evidence_id" json:"evidence_id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	UserName   string    `db:"user_name" json:"user_name"`
	Action     string    `db:"action" json:"action"`
	Details    string    `db:"details" json:"details"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}
