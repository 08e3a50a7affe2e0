package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/crypto"
	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
)

type custodyStorageRepository interface {
	Provision(ctx context.Context, storage *models.CaseStorage, location *models.StorageLocation) error
	GetByCaseID(ctx context.Context, caseID string) (*models.CaseStorage, error)
	GetByID(ctx context.Context, id string) (*models.CaseStorage, error)
	ListActive(ctx context.Context) ([]models.CaseStorage, error)
	SetLocked(ctx context.Context, id string, locked bool) error
	ListLocations(ctx context.Context, caseStorageID string) ([]models.StorageLocation, error)
	PrimaryLocation(ctx context.Context, caseStorageID string) (*models.StorageLocation, error)
	AddUsedSpace(ctx context.Context, locationID string, delta int64) error
	AssignLeastLoaded(ctx context.Context, caseStorageID string, assignedBy *string, reason string, now time.Time) (*models.CustodianAssignment, error)
	ActiveAssignment(ctx context.Context, caseStorageID string) (*models.CustodianAssignment, error)
	ListAssignments(ctx context.Context, caseStorageID string) ([]models.CustodianAssignment, error)
	CountActiveByCustodian(ctx context.Context, custodianID string) (int, error)
	Reassign(ctx context.Context, caseStorageID, custodianID string, actorID *string, reason string, now time.Time) (*models.CustodianAssignment, error)
	CreateEvidenceLink(ctx context.Context, link *models.EvidenceStorage) error
	GetEvidenceLink(ctx context.Context, evidenceID string) (*models.EvidenceStorage, error)
	RecordAccess(ctx context.Context, evidenceID string, at time.Time) error
	CountEvidenceLinks(ctx context.Context) (int, error)
}

type custodyTransferRepository interface {
	Create(ctx context.Context, transfer *models.CustodyTransfer) error
	GetByID(ctx context.Context, id string) (*models.CustodyTransfer, error)
	ListPending(ctx context.Context) ([]models.CustodyTransfer, error)
	ListByEvidence(ctx context.Context, evidenceID string) ([]models.CustodyTransfer, error)
	HasPendingForEvidence(ctx context.Context, evidenceID string) (bool, error)
	Resolve(ctx context.Context, id, status, reviewNotes string, reviewerID string, at time.Time) error
}

type custodyAuditRepository interface {
	InsertCustodyLog(ctx context.Context, entry *models.CustodyLog) error
	InsertStorageLog(ctx context.Context, entry *models.StorageLog) error
	ListRecentCustodyLogs(ctx context.Context, limit int) ([]models.CustodyLog, error)
}

type custodyEvidenceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Evidence, error)
	CountAll(ctx context.Context) (int, error)
}

type custodyUserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type custodyCaseDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListInvestigators(ctx context.Context, caseID string) ([]string, error)
}

// CustodyService owns the storage subsystem: per-case storages, custodian
// assignments, evidence placement and transfer review.
type CustodyService struct {
	storages  custodyStorageRepository
	transfers custodyTransferRepository
	audit     custodyAuditRepository
	evidence  custodyEvidenceRepository
	users     custodyUserDirectory
	cases     custodyCaseDirectory
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCustodyService constructs a CustodyService instance.
func NewCustodyService(storages custodyStorageRepository, transfers custodyTransferRepository, audit custodyAuditRepository, evidence custodyEvidenceRepository, users custodyUserDirectory, cases custodyCaseDirectory, validate *validator.Validate, logger *zap.Logger) *CustodyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CustodyService{
		storages:  storages,
		transfers: transfers,
		audit:     audit,
		evidence:  evidence,
		users:     users,
		cases:     cases,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProvisionForCase creates the custody storage a new case owns: its own key
// pair, a locked active container named after the case, one primary digital
// location, and the least-loaded custodian bound to it.
func (s *CustodyService) ProvisionForCase(ctx context.Context, c *models.Case, actor *models.User) error {
	pair, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate storage key: %w", err)
	}

	now := s.now()
	storage := &models.CaseStorage{
		ID:          uuid.NewString(),
		CaseID:      c.ID,
		StorageName: "STORAGE_" + c.CaseID,
		StoragePath: "/evidence/" + c.CaseID,
		Key:         pair.Key,
		IV:          pair.IV,
		IsLocked:    true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	location := &models.StorageLocation{
		ID:            uuid.NewString(),
		Name:          storage.StorageName + "_PRIMARY",
		LocationType:  models.LocationDigital,
		IsActive:      true,
		CaseStorageID: &storage.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.storages.Provision(ctx, storage, location); err != nil {
		return fmt.Errorf("provision storage for case %s: %w", c.CaseID, err)
	}

	s.storageLog(ctx, storage.ID, actor, models.StorageActionCreated,
		fmt.Sprintf("Provisioned storage %s for case %s", storage.StorageName, c.CaseID), "")

	var assignedBy *string
	if actor != nil {
		actorID := actor.ID
		assignedBy = &actorID
	}
	assignment, err := s.storages.AssignLeastLoaded(ctx, storage.ID, assignedBy, "auto-assigned at case creation", now)
	if err != nil {
		return fmt.Errorf("assign custodian for case %s: %w", c.CaseID, err)
	}
	if assignment == nil {
		s.logger.Warn("no active custodian available for new storage",
			zap.String("storage", storage.StorageName))
		return nil
	}
	s.storageLog(ctx, storage.ID, actor, models.StorageActionCustodianChange,
		fmt.Sprintf("Custodian %s assigned to %s", assignment.CustodianID, storage.StorageName), "")
	return nil
}

// GateUpload returns the storage of a case when uploads are currently
// permitted: the storage must be active and unlocked.
func (s *CustodyService) GateUpload(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	storage, err := s.storages.GetByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case has no storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case storage")
	}
	if !storage.IsActive {
		return nil, appErrors.Clone(appErrors.ErrStorageInactive, "case storage is inactive")
	}
	if storage.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrStorageLocked, "unlock the case storage before uploading")
	}
	return storage, nil
}

// StorageByCase resolves the storage of a case regardless of its lock state.
func (s *CustodyService) StorageByCase(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	storage, err := s.storages.GetByCaseID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case has no storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case storage")
	}
	return storage, nil
}

// ListStorages returns every active storage for the custody overview.
func (s *CustodyService) ListStorages(ctx context.Context, actor *models.User) ([]models.CaseStorage, error) {
	if !models.Allows(actor, models.ActionCustodyManage) && !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot inspect storages")
	}
	storages, err := s.storages.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list storages")
	}
	return storages, nil
}

// SetLock locks or unlocks a storage. The active custodian, the case creator,
// an assigned investigator or an admin may flip the lock.
func (s *CustodyService) SetLock(ctx context.Context, actor *models.User, storageID string, locked bool) error {
	storage, err := s.loadStorage(ctx, storageID)
	if err != nil {
		return err
	}
	if !s.CanUnlock(ctx, actor, storage) {
		return appErrors.Clone(appErrors.ErrForbidden, "no custody relationship with this storage")
	}
	if storage.IsLocked == locked {
		return appErrors.Clone(appErrors.ErrConflict, "storage already in requested lock state")
	}
	if err := s.storages.SetLocked(ctx, storage.ID, locked); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change storage lock")
	}
	action := models.StorageActionLock
	if !locked {
		action = models.StorageActionUnlock
	}
	s.storageLog(ctx, storage.ID, actor, action,
		fmt.Sprintf("Storage %s lock set to %t", storage.StorageName, locked), "")
	return nil
}

// GetStorageDetail returns a storage with its custodian, locations and
// assignment history.
func (s *CustodyService) GetStorageDetail(ctx context.Context, actor *models.User, storageID string) (*dto.StorageDetail, error) {
	if !models.Allows(actor, models.ActionCustodyManage) && !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot inspect storages")
	}
	storage, err := s.loadStorage(ctx, storageID)
	if err != nil {
		return nil, err
	}
	locations, err := s.storages.ListLocations(ctx, storage.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage locations")
	}
	assignments, err := s.storages.ListAssignments(ctx, storage.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load custodian assignments")
	}

	detail := &dto.StorageDetail{
		Storage:     *storage,
		Locations:   locations,
		Assignments: assignments,
	}
	if active, err := s.storages.ActiveAssignment(ctx, storage.ID); err == nil {
		detail.CurrentCustodian = &active.CustodianID
	}

	s.storageLog(ctx, storage.ID, actor, models.StorageActionAccess,
		fmt.Sprintf("Inspected storage %s", storage.StorageName), "")
	return detail, nil
}

// Dashboard aggregates the custody counters for the landing view.
func (s *CustodyService) Dashboard(ctx context.Context, actor *models.User) (*dto.CustodyDashboard, error) {
	if !models.Allows(actor, models.ActionCustodyManage) && !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view the custody dashboard")
	}

	active, err := s.storages.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active storages")
	}
	mine, err := s.storages.CountActiveByCustodian(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	totalEvidence, err := s.evidence.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count evidence")
	}
	linked, err := s.storages.CountEvidenceLinks(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count evidence links")
	}
	pending, err := s.transfers.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending transfers")
	}
	recent, err := s.audit.ListRecentCustodyLogs(ctx, 10)
	if err != nil {
		s.logger.Warn("failed to load recent custody logs", zap.Error(err))
		recent = []models.CustodyLog{}
	}

	return &dto.CustodyDashboard{
		ActiveStorages:      len(active),
		MyActiveAssignments: mine,
		TotalEvidence:       totalEvidence,
		EvidenceWithStorage: linked,
		PendingTransfers:    len(pending),
		RecentCustodyLogs:   recent,
	}, nil
}

// ReassignCustodian replaces the active custodian of a storage. Admin only;
// the old assignment is kept as history.
func (s *CustodyService) ReassignCustodian(ctx context.Context, actor *models.User, storageID string, req dto.ReassignCustodianRequest) (*models.CustodianAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins reassign custodians")
	}
	storage, err := s.loadStorage(ctx, storageID)
	if err != nil {
		return nil, err
	}
	custodian, err := s.users.FindByID(ctx, req.CustodianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custodian does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load custodian")
	}
	if custodian.Role != models.RoleCustodian {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not a custodian")
	}

	actorID := actor.ID
	assignment, err := s.storages.Reassign(ctx, storage.ID, custodian.ID, &actorID, req.Reason, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign custodian")
	}
	s.storageLog(ctx, storage.ID, actor, models.StorageActionCustodianChange,
		fmt.Sprintf("Custodian changed to %s: %s", custodian.ID, req.Reason), "")
	return assignment, nil
}

// RequestTransfer opens a custody handover for one evidence item. One pending
// transfer per evidence at a time.
func (s *CustodyService) RequestTransfer(ctx context.Context, actor *models.User, evidenceID string, req dto.RequestTransferRequest) (*models.CustodyTransfer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if !models.Allows(actor, models.ActionTransferRequest) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot request transfers")
	}

	ev, err := s.evidence.GetByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evidence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	if _, err := s.users.FindByID(ctx, req.ToUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "target user does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target user")
	}
	pending, err := s.transfers.HasPendingForEvidence(ctx, ev.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending transfers")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "evidence already has a pending transfer")
	}

	transfer := &models.CustodyTransfer{
		ID:          uuid.NewString(),
		EvidenceID:  ev.ID,
		FromUserID:  actor.ID,
		ToUserID:    req.ToUserID,
		RequestedBy: actor.ID,
		Status:      models.TransferStatusPending,
		Reason:      req.Reason,
		CreatedAt:   s.now(),
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transfer")
	}
	return transfer, nil
}

// ReviewTransfer lets a custodian approve or reject a pending transfer.
// Either decision lands in the custody trail; only approval moves custody.
func (s *CustodyService) ReviewTransfer(ctx context.Context, actor *models.User, transferID string, req dto.ReviewTransferRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !models.Allows(actor, models.ActionTransferApprove) {
		return appErrors.Clone(appErrors.ErrForbidden, "only custodians review transfers")
	}

	transfer, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "transfer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer")
	}
	if transfer.Status != models.TransferStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "transfer already decided")
	}

	status := models.TransferStatusRejected
	if req.Decision == "approve" {
		status = models.TransferStatusApproved
	}
	if err := s.transfers.Resolve(ctx, transfer.ID, status, req.ReviewNotes, actor.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "transfer already decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve transfer")
	}

	ev, err := s.evidence.GetByID(ctx, transfer.EvidenceID)
	if err != nil {
		s.logger.Warn("failed to load evidence for transfer log", zap.Error(err))
		return nil
	}
	if status == models.TransferStatusApproved {
		s.custodyLog(ctx, ev, actor, models.CustodyActionTransferred,
			fmt.Sprintf("Custody transferred from %s to %s", transfer.FromUserID, transfer.ToUserID), &transfer.ToUserID)
	} else {
		s.custodyLog(ctx, ev, actor, models.CustodyActionTransferDenied,
			fmt.Sprintf("Transfer to %s rejected: %s", transfer.ToUserID, req.ReviewNotes), nil)
	}
	return nil
}

// ListPendingTransfers returns the transfers awaiting custodian review.
func (s *CustodyService) ListPendingTransfers(ctx context.Context, actor *models.User) ([]models.CustodyTransfer, error) {
	if !models.Allows(actor, models.ActionTransferApprove) && !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot list pending transfers")
	}
	transfers, err := s.transfers.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending transfers")
	}
	return transfers, nil
}

// StoreEvidence binds a freshly uploaded evidence item to the primary location
// of its case storage and writes the stored custody row.
func (s *CustodyService) StoreEvidence(ctx context.Context, storage *models.CaseStorage, ev *models.Evidence, actor *models.User) error {
	location, err := s.storages.PrimaryLocation(ctx, storage.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInternal, "case storage has no active location")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load primary location")
	}

	now := s.now()
	link := &models.EvidenceStorage{
		ID:                uuid.NewString(),
		EvidenceID:        ev.ID,
		StorageLocationID: location.ID,
		StoredAt:          now,
		LastAccessed:      now,
	}
	if err := s.storages.CreateEvidenceLink(ctx, link); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link evidence to storage")
	}
	if err := s.storages.AddUsedSpace(ctx, location.ID, ev.SizeBytes); err != nil {
		s.logger.Warn("failed to update location used space", zap.Error(err))
	}

	s.custodyLog(ctx, ev, actor, models.CustodyActionStored,
		fmt.Sprintf("Stored %s in %s", ev.OriginalFilename, location.Name), nil)
	s.storageLog(ctx, storage.ID, actor, models.StorageActionUpload,
		fmt.Sprintf("Uploaded %s (%d bytes)", ev.OriginalFilename, ev.SizeBytes), "")
	return nil
}

// RecordEvidenceAccess bumps the access bookkeeping and writes the matching
// custody row for a view or download.
func (s *CustodyService) RecordEvidenceAccess(ctx context.Context, ev *models.Evidence, actor *models.User, action string) {
	if err := s.storages.RecordAccess(ctx, ev.ID, s.now()); err != nil {
		s.logger.Warn("failed to record evidence access", zap.Error(err))
	}
	s.custodyLog(ctx, ev, actor, action, fmt.Sprintf("Accessed %s", ev.OriginalFilename), nil)
}

// ChainOfCustody returns the ordered custody trail of an evidence item.
func (s *CustodyService) ChainOfCustody(ctx context.Context, actor *models.User, evidenceID string) ([]models.CustodyTransfer, error) {
	if !models.Allows(actor, models.ActionAuditView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view custody history")
	}
	transfers, err := s.transfers.ListByEvidence(ctx, evidenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer history")
	}
	return transfers, nil
}

func (s *CustodyService) loadStorage(ctx context.Context, id string) (*models.CaseStorage, error) {
	storage, err := s.storages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "storage not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage")
	}
	return storage, nil
}

// CanUnlock reports whether the actor may flip the lock on a storage: admins,
// the active custodian, the case creator and assigned investigators qualify.
func (s *CustodyService) CanUnlock(ctx context.Context, actor *models.User, storage *models.CaseStorage) bool {
	if !models.Allows(actor, models.ActionStorageUnlock) {
		return false
	}
	return s.hasStorageAccess(ctx, actor, storage)
}

// CanUpload reports whether the actor may place evidence into a storage. The
// storage must be active and unlocked on top of the custody relationship.
func (s *CustodyService) CanUpload(ctx context.Context, actor *models.User, storage *models.CaseStorage) bool {
	if storage.IsLocked || !storage.IsActive {
		return false
	}
	return s.hasStorageAccess(ctx, actor, storage)
}

func (s *CustodyService) hasStorageAccess(ctx context.Context, actor *models.User, storage *models.CaseStorage) bool {
	if actor.IsStaff() {
		return true
	}
	if active, err := s.storages.ActiveAssignment(ctx, storage.ID); err == nil && active.CustodianID == actor.ID {
		return true
	}
	c, err := s.cases.GetByID(ctx, storage.CaseID)
	if err != nil {
		s.logger.Warn("failed to load case for storage access check", zap.Error(err))
		return false
	}
	if c.CreatedBy == actor.ID {
		return true
	}
	ids, err := s.cases.ListInvestigators(ctx, c.ID)
	if err != nil {
		s.logger.Warn("failed to load case investigators", zap.Error(err))
		return false
	}
	for _, id := range ids {
		if id == actor.ID {
			return true
		}
	}
	return false
}

func (s *CustodyService) custodyLog(ctx context.Context, ev *models.Evidence, actor *models.User, action, details string, toUserID *string) {
	entry := &models.CustodyLog{
		ID:         uuid.NewString(),
		EvidenceID: ev.ID,
		CaseID:     ev.CaseID,
		Action:     action,
		Details:    details,
		ToUserID:   toUserID,
		Timestamp:  s.now(),
	}
	if actor != nil {
		actorID := actor.ID
		entry.UserID = &actorID
		entry.UserName = actor.FullName
	}
	if err := s.audit.InsertCustodyLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record custody log", zap.String("action", action), zap.Error(err))
	}
}

func (s *CustodyService) storageLog(ctx context.Context, storageID string, actor *models.User, action, details, ip string) {
	entry := &models.StorageLog{
		ID:            uuid.NewString(),
		CaseStorageID: storageID,
		Action:        action,
		Details:       details,
		IPAddress:     ip,
		Timestamp:     s.now(),
	}
	if actor != nil {
		actorID := actor.ID
		entry.UserID = &actorID
		entry.UserName = actor.FullName
	}
	if err := s.audit.InsertStorageLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record storage log", zap.String("action", action), zap.Error(err))
	}
}
