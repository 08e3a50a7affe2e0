package service

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/crypto"
	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/storage"
)

type evidenceRepository interface {
	Create(ctx context.Context, e *models.Evidence) error
	GetByID(ctx context.Context, id string) (*models.Evidence, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Evidence, error)
	UpdateDescription(ctx context.Context, id, description string) error
	UpdateStatus(ctx context.Context, id string, status models.MediaStatus) error
}

type evidenceCaseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
}

type evidenceAuditRepository interface {
	InsertEvidenceLog(ctx context.Context, entry *models.EvidenceAuditLog) error
}

// evidenceCustodyGate is the slice of the custody service the evidence flow
// needs: the upload gate and the placement bookkeeping.
type evidenceCustodyGate interface {
	GateUpload(ctx context.Context, caseID string) (*models.CaseStorage, error)
	CanUpload(ctx context.Context, actor *models.User, storage *models.CaseStorage) bool
	StorageByCase(ctx context.Context, caseID string) (*models.CaseStorage, error)
	StoreEvidence(ctx context.Context, s *models.CaseStorage, ev *models.Evidence, actor *models.User) error
	RecordEvidenceAccess(ctx context.Context, ev *models.Evidence, actor *models.User, action string)
}

// EvidenceService handles encrypted evidence files: upload, download,
// metadata edits and integrity verification.
type EvidenceService struct {
	repo        evidenceRepository
	cases       evidenceCaseRepository
	custody     evidenceCustodyGate
	audit       evidenceAuditRepository
	blobs       storage.BlobStore
	validator   *validator.Validate
	logger      *zap.Logger
	maxFileSize int64
	now         func() time.Time
}

// NewEvidenceService constructs an EvidenceService instance.
func NewEvidenceService(repo evidenceRepository, cases evidenceCaseRepository, custody evidenceCustodyGate, audit evidenceAuditRepository, blobs storage.BlobStore, validate *validator.Validate, logger *zap.Logger, maxFileSize int64) *EvidenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EvidenceService{
		repo:        repo,
		cases:       cases,
		custody:     custody,
		audit:       audit,
		blobs:       blobs,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Upload ingests a new evidence file. Both fingerprints are computed over the
// raw bytes first, then the content is sealed with the storage key before it
// reaches the blob store. The stored ciphertext never changes afterwards.
func (s *EvidenceService) Upload(ctx context.Context, actor *models.User, caseID string, filename string, data []byte, req dto.UploadEvidenceRequest) (*dto.EvidenceMetadata, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evidence payload")
	}
	if !models.Allows(actor, models.ActionEvidenceUpload) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot upload evidence")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "evidence file is empty")
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("evidence file exceeds the %d byte limit", s.maxFileSize))
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.Status.Terminal() || c.Status == models.CaseStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrCaseReadOnly, "case no longer accepts evidence")
	}

	caseStorage, err := s.custody.GateUpload(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !s.custody.CanUpload(ctx, actor, caseStorage) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no custody relationship with this case storage")
	}
	cipher, err := crypto.NewCipher(caseStorage.Key, caseStorage.IV, s.logger)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build storage cipher")
	}

	sha := sha256.Sum256(data)
	md := md5.Sum(data)

	sealed, err := cipher.EncryptBytes(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal evidence")
	}

	now := s.now()
	ev := &models.Evidence{
		ID:               uuid.NewString(),
		CaseID:           c.ID,
		OriginalFilename: filename,
		Description:      req.Description,
		MediaType:        detectMediaType(filename, req.MediaType),
		Status:           models.MediaStatusValid,
		SHA256:           hex.EncodeToString(sha[:]),
		MD5:              hex.EncodeToString(md[:]),
		SizeBytes:        int64(len(data)),
		UploadedAt:       now,
	}
	actorID := actor.ID
	ev.UploadedBy = &actorID
	ev.BlobKey = path.Join(c.CaseID, ev.ID+".bin")

	if err := s.blobs.Put(ctx, ev.BlobKey, sealed, "application/octet-stream"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store evidence blob")
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		if delErr := s.blobs.Delete(ctx, ev.BlobKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned evidence blob", zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist evidence")
	}

	if err := s.custody.StoreEvidence(ctx, caseStorage, ev, actor); err != nil {
		s.logger.Error("failed to place evidence in storage", zap.String("evidence", ev.ID), zap.Error(err))
	}
	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceUploaded,
		fmt.Sprintf("Uploaded %s (sha256 %s)", ev.OriginalFilename, ev.SHA256))

	return toEvidenceMetadata(ev), nil
}

// Get returns evidence metadata and records the view.
func (s *EvidenceService) Get(ctx context.Context, actor *models.User, id string) (*dto.EvidenceMetadata, error) {
	if !models.Allows(actor, models.ActionEvidenceView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view evidence")
	}
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.custody.RecordEvidenceAccess(ctx, ev, actor, models.CustodyActionViewed)
	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceViewed,
		fmt.Sprintf("Viewed %s", ev.OriginalFilename))
	return toEvidenceMetadata(ev), nil
}

// ListByCase returns the evidence metadata of one case, newest first.
func (s *EvidenceService) ListByCase(ctx context.Context, actor *models.User, caseID string) ([]dto.EvidenceMetadata, error) {
	if !models.Allows(actor, models.ActionEvidenceView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view evidence")
	}
	items, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence")
	}
	out := make([]dto.EvidenceMetadata, 0, len(items))
	for i := range items {
		out = append(out, *toEvidenceMetadata(&items[i]))
	}
	return out, nil
}

// Download returns the decrypted original bytes of an evidence item.
func (s *EvidenceService) Download(ctx context.Context, actor *models.User, id string) (*models.Evidence, []byte, error) {
	if !models.Allows(actor, models.ActionEvidenceView) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot download evidence")
	}
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.open(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	s.custody.RecordEvidenceAccess(ctx, ev, actor, models.CustodyActionDownloaded)
	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceDownloaded,
		fmt.Sprintf("Downloaded %s", ev.OriginalFilename))
	return ev, data, nil
}

// UpdateDescription amends the evidence description. The file bytes and
// hashes are immutable; only this metadata field may change, and the audit
// row carries both the old and the new value.
func (s *EvidenceService) UpdateDescription(ctx context.Context, actor *models.User, id string, req dto.UpdateEvidenceDescriptionRequest) (*dto.EvidenceMetadata, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid description payload")
	}
	if !models.Allows(actor, models.ActionEvidenceUpload) && !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot edit evidence")
	}
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status != models.MediaStatusValid {
		return nil, appErrors.Clone(appErrors.ErrEvidenceImmutable, "only valid evidence can be edited")
	}

	old := ev.Description
	if err := s.repo.UpdateDescription(ctx, ev.ID, req.Description); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update description")
	}
	ev.Description = req.Description

	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceDescEdited,
		fmt.Sprintf("Description changed from %q to %q", old, req.Description))
	return toEvidenceMetadata(ev), nil
}

// Invalidate marks an evidence item invalid. The blob stays untouched; the
// trail is the only place the change is visible.
func (s *EvidenceService) Invalidate(ctx context.Context, actor *models.User, id string, reason string) error {
	if !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins invalidate evidence")
	}
	ev, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if ev.Status == models.MediaStatusInvalid {
		return appErrors.Clone(appErrors.ErrConflict, "evidence already invalid")
	}
	if err := s.repo.UpdateStatus(ctx, ev.ID, models.MediaStatusInvalid); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate evidence")
	}
	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceInvalidated,
		fmt.Sprintf("Marked %s invalid: %s", ev.OriginalFilename, reason))
	return nil
}

// Verify decrypts the stored blob, recomputes its SHA-256 fingerprint and
// compares it against the stored one.
func (s *EvidenceService) Verify(ctx context.Context, actor *models.User, id string) (*dto.VerifyResult, error) {
	if !models.Allows(actor, models.ActionEvidenceVerify) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot verify evidence")
	}
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.open(ctx, ev)
	if err != nil {
		return nil, err
	}

	actual := sha256.Sum256(data)
	result := &dto.VerifyResult{
		EvidenceID:   ev.ID,
		StoredSHA256: ev.SHA256,
		ActualSHA256: hex.EncodeToString(actual[:]),
	}
	result.Intact = result.StoredSHA256 == result.ActualSHA256

	s.custody.RecordEvidenceAccess(ctx, ev, actor, models.CustodyActionVerified)
	s.record(ctx, ev.ID, actor, models.AuditActionEvidenceVerified,
		fmt.Sprintf("Integrity check on %s: intact=%t", ev.OriginalFilename, result.Intact))
	if !result.Intact {
		s.logger.Error("evidence integrity check failed",
			zap.String("evidence", ev.ID),
			zap.String("stored", result.StoredSHA256),
			zap.String("actual", result.ActualSHA256))
	}
	return result, nil
}

// VerifyCase runs the integrity check over every evidence item of a case and
// aggregates the outcomes into a report.
func (s *EvidenceService) VerifyCase(ctx context.Context, actor *models.User, caseID string) (*dto.IntegrityReport, error) {
	if !models.Allows(actor, models.ActionEvidenceVerify) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot verify evidence")
	}
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	items, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence")
	}

	report := &dto.IntegrityReport{
		CaseID:        caseID,
		TotalEvidence: len(items),
		Results:       make([]dto.VerifyResult, 0, len(items)),
	}
	for i := range items {
		result, err := s.Verify(ctx, actor, items[i].ID)
		if err != nil {
			return nil, err
		}
		if result.Intact {
			report.IntactCount++
		} else {
			report.TamperedCount++
		}
		report.Results = append(report.Results, *result)
	}
	return report, nil
}

func (s *EvidenceService) load(ctx context.Context, id string) (*models.Evidence, error) {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evidence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	return ev, nil
}

// open fetches the sealed blob and decrypts it with the storage key of the
// owning case. Reads are allowed while the storage is locked.
func (s *EvidenceService) open(ctx context.Context, ev *models.Evidence) ([]byte, error) {
	caseStorage, err := s.custody.StorageByCase(ctx, ev.CaseID)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewCipher(caseStorage.Key, caseStorage.IV, s.logger)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build storage cipher")
	}
	sealed, err := s.blobs.Get(ctx, ev.BlobKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch evidence blob")
	}
	data, err := cipher.DecryptBytes(sealed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open evidence blob")
	}
	return data, nil
}

func (s *EvidenceService) record(ctx context.Context, evidenceID string, actor *models.User, action, details string) {
	entry := &models.EvidenceAuditLog{
		ID:         uuid.NewString(),
		EvidenceID: evidenceID,
		UserName:   actor.FullName,
		Action:     action,
		Details:    details,
		Timestamp:  s.now(),
	}
	actorID := actor.ID
	entry.UserID = &actorID
	if err := s.audit.InsertEvidenceLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record evidence audit log",
			zap.String("action", action), zap.Error(err))
	}
}

func toEvidenceMetadata(ev *models.Evidence) *dto.EvidenceMetadata {
	return &dto.EvidenceMetadata{
		ID:               ev.ID,
		CaseID:           ev.CaseID,
		Description:      ev.Description,
		MediaType:        ev.MediaType,
		Status:           ev.Status,
		SHA256:           ev.SHA256,
		MD5:              ev.MD5,
		OriginalFilename: ev.OriginalFilename,
		SizeBytes:        ev.SizeBytes,
		UploadedBy:       ev.UploadedBy,
		UploadedAt:       ev.UploadedAt.Format(time.RFC3339),
	}
}

// detectMediaType falls back to the file extension when the client did not
// declare a type.
func detectMediaType(filename string, declared models.MediaType) models.MediaType {
	if declared != "" {
		return declared
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return models.MediaTypeImage
	case ".mp4", ".mov", ".avi", ".mkv", ".webm":
		return models.MediaTypeVideo
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a":
		return models.MediaTypeAudio
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx":
		return models.MediaTypeDocument
	case ".txt", ".log", ".csv", ".json", ".xml":
		return models.MediaTypeText
	default:
		return models.MediaTypeOther
	}
}
