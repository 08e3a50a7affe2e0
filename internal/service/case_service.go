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

type caseRepository interface {
	CreateWithKey(ctx context.Context, c *models.Case, key *models.EncryptionKey) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	GetByCaseID(ctx context.Context, caseID string) (*models.Case, error)
	GetKey(ctx context.Context, caseID string) (*models.EncryptionKey, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error)
	UpdateFields(ctx context.Context, c *models.Case) error
	UpdateLifecycle(ctx context.Context, c *models.Case) error
	ListInvestigators(ctx context.Context, caseID string) ([]string, error)
	SetInvestigators(ctx context.Context, caseID string, userIDs []string) error
	CreateAssignmentRequest(ctx context.Context, req *models.AssignmentRequest) error
	GetAssignmentRequest(ctx context.Context, id string) (*models.AssignmentRequest, error)
	UpdateAssignmentRequestStatus(ctx context.Context, id, status string, approvedAt *time.Time) error
}

type caseAuditRepository interface {
	InsertCaseLog(ctx context.Context, entry *models.CaseAuditLog) error
}

type caseUserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// storageProvisioner is invoked once after a case is persisted; it creates the
// custody storage that every case owns.
type storageProvisioner interface {
	ProvisionForCase(ctx context.Context, c *models.Case, actor *models.User) error
}

// caseTransitions is the complete set of legal lifecycle moves. Anything not
// listed here is rejected with ErrInvalidTransition.
var caseTransitions = map[models.CaseStatus]map[models.CaseStatus]bool{
	models.CaseStatusOpen: {
		models.CaseStatusPendingApproval: true,
		models.CaseStatusUnderReview:     true,
		models.CaseStatusWithdrawn:       true,
		models.CaseStatusInvalid:         true,
	},
	models.CaseStatusPendingApproval: {
		models.CaseStatusOpen:        true,
		models.CaseStatusUnderReview: true,
		models.CaseStatusWithdrawn:   true,
		models.CaseStatusInvalid:     true,
	},
	models.CaseStatusUnderReview: {
		models.CaseStatusClosed:    true,
		models.CaseStatusWithdrawn: true,
		models.CaseStatusInvalid:   true,
	},
	models.CaseStatusClosed: {
		models.CaseStatusArchived:    true,
		models.CaseStatusUnderReview: true,
	},
}

// CanTransition reports whether moving a case from one status to another is
// legal.
func CanTransition(from, to models.CaseStatus) bool {
	return caseTransitions[from][to]
}

// editableStatuses are the states in which the encrypted text fields may still
// change.
var editableStatuses = map[models.CaseStatus]bool{
	models.CaseStatusOpen:            true,
	models.CaseStatusPendingApproval: true,
	models.CaseStatusUnderReview:     true,
}

// CaseService implements the case lifecycle: creation with per-case keys,
// field sealing, assignment flows and the closure protocol.
type CaseService struct {
	repo        caseRepository
	audit       caseAuditRepository
	users       caseUserDirectory
	provisioner storageProvisioner
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewCaseService constructs a CaseService instance.
func NewCaseService(repo caseRepository, audit caseAuditRepository, users caseUserDirectory, provisioner storageProvisioner, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CaseService{
		repo:        repo,
		audit:       audit,
		users:       users,
		provisioner: provisioner,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new case. A fresh AES-256 key pair is generated, all six
// sensitive fields are sealed before anything touches the database, and the
// custody storage is provisioned right after the row lands.
func (s *CaseService) Create(ctx context.Context, actor *models.User, req dto.CreateCaseRequest) (*dto.CaseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if !models.Allows(actor, models.ActionCaseCreate) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot create cases")
	}

	pair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate case key")
	}
	cipher, err := crypto.NewCipher(pair.Key, pair.IV, s.logger)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build case cipher")
	}

	now := s.now()
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	c := &models.Case{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      models.CaseStatusOpen,
		Priority:    priority,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sealFields(c, cipher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal case fields")
	}

	key := &models.EncryptionKey{
		ID:        uuid.NewString(),
		CaseID:    c.ID,
		Key:       pair.Key,
		IV:        pair.IV,
		CreatedAt: now,
	}
	if err := s.repo.CreateWithKey(ctx, c, key); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}

	s.record(ctx, &c.ID, actor, models.AuditActionCaseCreated, fmt.Sprintf("Created case %s", c.CaseID))

	if s.provisioner != nil {
		if err := s.provisioner.ProvisionForCase(ctx, c, actor); err != nil {
			s.logger.Error("failed to provision case storage",
				zap.String("case_id", c.CaseID), zap.Error(err))
		}
	}

	return s.toDetail(ctx, c, cipher)
}

// Get loads a case, checks read access and returns the decrypted view. Every
// successful read lands in the audit trail.
func (s *CaseService) Get(ctx context.Context, actor *models.User, id string) (*dto.CaseDetail, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(ctx, actor, c) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to this case")
	}
	cipher, err := s.cipherFor(ctx, c)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &c.ID, actor, models.AuditActionCaseViewed, fmt.Sprintf("Viewed case %s", c.CaseID))
	return s.toDetail(ctx, c, cipher)
}

// List returns the cases visible to the actor. Staff see everything; other
// roles see what they created or are assigned to.
func (s *CaseService) List(ctx context.Context, actor *models.User, query dto.CaseListFilter) ([]dto.CaseDetail, *models.Pagination, error) {
	filter := models.CaseFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.CaseStatus(query.Status)
		filter.Status = &status
	}
	if query.Priority != "" {
		priority := models.CasePriority(query.Priority)
		filter.Priority = &priority
	}
	if !actor.IsStaff() && actor.Role != models.RoleAuditor {
		switch actor.Role {
		case models.RoleInvestigator, models.RoleAnalyst:
			filter.AssignedTo = actor.ID
		default:
			filter.CreatedBy = actor.ID
		}
	}

	cases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}

	details := make([]dto.CaseDetail, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		cipher, err := s.cipherFor(ctx, c)
		if err != nil {
			s.logger.Warn("skipping undecryptable case in list", zap.String("case_id", c.CaseID), zap.Error(err))
			continue
		}
		detail, err := s.toDetail(ctx, c, cipher)
		if err != nil {
			return nil, nil, err
		}
		details = append(details, *detail)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return details, pagination, nil
}

// Update edits the sensitive fields and priority of a case that is still in an
// editable state. Plaintext is sealed with the existing case key before the
// update is written.
func (s *CaseService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateCaseRequest) (*dto.CaseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case update payload")
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(ctx, actor, c) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no write access to this case")
	}
	if !editableStatuses[c.Status] {
		return nil, appErrors.Clone(appErrors.ErrCaseReadOnly, fmt.Sprintf("case in status %q cannot be edited", c.Status))
	}

	cipher, err := s.cipherFor(ctx, c)
	if err != nil {
		return nil, err
	}
	s.openFields(c, cipher)

	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Category != nil {
		c.Category = *req.Category
	}
	if req.StatusNotes != nil {
		c.StatusNotes = *req.StatusNotes
	}
	if req.FinalReport != nil {
		c.FinalReport = *req.FinalReport
	}
	if req.Conclusion != nil {
		c.Conclusion = *req.Conclusion
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}

	if err := s.sealFields(c, cipher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal case fields")
	}
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateFields(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}

	s.record(ctx, &c.ID, actor, models.AuditActionCaseEdited, fmt.Sprintf("Edited case %s", c.CaseID))
	return s.toDetail(ctx, c, cipher)
}

// ProposeAssignment files an investigator assignment for admin review. An
// open case is parked in pending admin approval until the request is decided.
func (s *CaseService) ProposeAssignment(ctx context.Context, actor *models.User, caseID string, req dto.ProposeAssignmentRequest) (*models.AssignmentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !models.Allows(actor, models.ActionCaseAssign) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot propose assignments")
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() || c.Status == models.CaseStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrCaseReadOnly, "case no longer accepts assignments")
	}
	if err := s.verifyInvestigators(ctx, req.InvestigatorIDs); err != nil {
		return nil, err
	}

	now := s.now()
	request := &models.AssignmentRequest{
		ID:            uuid.NewString(),
		CaseID:        c.ID,
		RequestedBy:   actor.ID,
		RequestType:   models.AssignmentTypeAssignment,
		Status:        models.AssignmentStatusPendingAdmin,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
		AssignedUsers: req.InvestigatorIDs,
	}
	if err := s.repo.CreateAssignmentRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment request")
	}
	if c.Status == models.CaseStatusOpen {
		if err := s.transition(ctx, c, models.CaseStatusPendingApproval); err != nil {
			return nil, err
		}
	}

	s.record(ctx, &c.ID, actor, models.AuditActionAssignmentProposed,
		fmt.Sprintf("Proposed %d investigator(s) for case %s", len(req.InvestigatorIDs), c.CaseID))
	return request, nil
}

// ReviewAssignment lets an admin approve or reject a pending assignment
// request. Approval binds the investigators and moves the case under review;
// rejection releases a pending case back to open.
func (s *CaseService) ReviewAssignment(ctx context.Context, actor *models.User, requestID string, approve bool) error {
	if !models.Allows(actor, models.ActionCaseApprove) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins review assignment requests")
	}
	request, err := s.repo.GetAssignmentRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment request")
	}
	if request.Status != models.AssignmentStatusPendingAdmin {
		return appErrors.Clone(appErrors.ErrConflict, "assignment request already decided")
	}
	c, err := s.load(ctx, request.CaseID)
	if err != nil {
		return err
	}

	now := s.now()
	if !approve {
		if err := s.repo.UpdateAssignmentRequestStatus(ctx, requestID, models.AssignmentStatusRejected, nil); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject assignment request")
		}
		if c.Status == models.CaseStatusPendingApproval {
			if err := s.transition(ctx, c, models.CaseStatusOpen); err != nil {
				return err
			}
		}
		s.record(ctx, &c.ID, actor, models.AuditActionAssignmentRejected,
			fmt.Sprintf("Rejected assignment request for case %s", c.CaseID))
		return nil
	}

	if err := s.repo.SetInvestigators(ctx, c.ID, request.AssignedUsers); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign investigators")
	}
	if err := s.repo.UpdateAssignmentRequestStatus(ctx, requestID, models.AssignmentStatusApproved, &now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve assignment request")
	}
	if c.Status != models.CaseStatusUnderReview {
		if err := s.transition(ctx, c, models.CaseStatusUnderReview); err != nil {
			return err
		}
	}
	s.record(ctx, &c.ID, actor, models.AuditActionAssignmentApproved,
		fmt.Sprintf("Approved assignment request for case %s", c.CaseID))
	return nil
}

// DirectAssign is the admin path that binds investigators without the approval
// queue.
func (s *CaseService) DirectAssign(ctx context.Context, actor *models.User, caseID string, req dto.DirectAssignmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !models.Allows(actor, models.ActionCaseApprove) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins assign directly")
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Status.Terminal() || c.Status == models.CaseStatusClosed {
		return appErrors.Clone(appErrors.ErrCaseReadOnly, "case no longer accepts assignments")
	}
	if err := s.verifyInvestigators(ctx, req.InvestigatorIDs); err != nil {
		return err
	}
	if err := s.repo.SetInvestigators(ctx, c.ID, req.InvestigatorIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign investigators")
	}
	if c.Status != models.CaseStatusUnderReview {
		if err := s.transition(ctx, c, models.CaseStatusUnderReview); err != nil {
			return err
		}
	}
	s.record(ctx, &c.ID, actor, models.AuditActionAssignedDirect,
		fmt.Sprintf("Directly assigned %d investigator(s) to case %s", len(req.InvestigatorIDs), c.CaseID))
	return nil
}

// RequestClosure starts the dual-approval closure protocol. The creator or an
// assigned investigator may request it from an open or under-review case; an
// open case moves under review first. Requesting again is a no-op conflict.
func (s *CaseService) RequestClosure(ctx context.Context, actor *models.User, caseID string, reason string) error {
	if !models.Allows(actor, models.ActionCaseClose) {
		return appErrors.Clone(appErrors.ErrForbidden, "role cannot request closure")
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && !s.isCreatorOrAssigned(ctx, actor, c) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or an assigned investigator requests closure")
	}
	if c.Status != models.CaseStatusOpen && c.Status != models.CaseStatusUnderReview {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "closure can only be requested from an open or under-review case")
	}
	if c.ClosureRequested {
		return appErrors.Clone(appErrors.ErrConflict, "closure already requested")
	}

	if c.Status == models.CaseStatusOpen {
		c.Status = models.CaseStatusUnderReview
	}
	c.ClosureRequested = true
	if reason != "" {
		c.CloseReason = &reason
	}
	if actor.ID == c.CreatedBy {
		c.ClosureCreatorApproved = true
	}
	if actor.IsStaff() {
		c.ClosureAdminApproved = true
	}
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateLifecycle(ctx, c); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request closure")
	}
	s.record(ctx, &c.ID, actor, models.AuditActionClosureRequested,
		fmt.Sprintf("Requested closure of case %s", c.CaseID))
	return s.finalizeClosureIfReady(ctx, actor, c)
}

// DecideClosure records a closure approval or rejection. Closing needs both
// the creator's and an admin's approval; a rejection resets the protocol.
func (s *CaseService) DecideClosure(ctx context.Context, actor *models.User, caseID string, approve bool) error {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if !c.ClosureRequested || c.Status != models.CaseStatusUnderReview {
		return appErrors.Clone(appErrors.ErrConflict, "no pending closure request")
	}

	isCreator := actor.ID == c.CreatedBy
	if !isCreator && !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the case creator or an admin decides closure")
	}

	if !approve {
		c.ClosureRequested = false
		c.ClosureCreatorApproved = false
		c.ClosureAdminApproved = false
		c.UpdatedAt = s.now()
		if err := s.repo.UpdateLifecycle(ctx, c); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset closure")
		}
		s.record(ctx, &c.ID, actor, models.AuditActionClosureRejected,
			fmt.Sprintf("Rejected closure of case %s", c.CaseID))
		return nil
	}

	if isCreator {
		c.ClosureCreatorApproved = true
		s.record(ctx, &c.ID, actor, models.AuditActionClosureCreatorOK,
			fmt.Sprintf("Creator approved closure of case %s", c.CaseID))
	}
	if actor.IsStaff() {
		c.ClosureAdminApproved = true
		s.record(ctx, &c.ID, actor, models.AuditActionClosureAdminOK,
			fmt.Sprintf("Admin approved closure of case %s", c.CaseID))
	}
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateLifecycle(ctx, c); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record closure approval")
	}
	return s.finalizeClosureIfReady(ctx, actor, c)
}

func (s *CaseService) finalizeClosureIfReady(ctx context.Context, actor *models.User, c *models.Case) error {
	if !c.ClosureCreatorApproved || !c.ClosureAdminApproved {
		return nil
	}
	if err := s.transition(ctx, c, models.CaseStatusClosed); err != nil {
		return err
	}
	s.record(ctx, &c.ID, actor, models.AuditActionCaseClosed,
		fmt.Sprintf("Closed case %s after both approvals", c.CaseID))
	return nil
}

// Archive moves a closed case into its terminal archived state.
func (s *CaseService) Archive(ctx context.Context, actor *models.User, caseID string) error {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if actor.ID != c.CreatedBy && !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or an admin archives a case")
	}
	if err := s.transition(ctx, c, models.CaseStatusArchived); err != nil {
		return err
	}
	s.record(ctx, &c.ID, actor, models.AuditActionCaseArchived, fmt.Sprintf("Archived case %s", c.CaseID))
	return nil
}

// Withdraw pulls a case out of circulation. Terminal; the case becomes read
// only.
func (s *CaseService) Withdraw(ctx context.Context, actor *models.User, caseID string, reason string) error {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if actor.ID != c.CreatedBy && !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or an admin withdraws a case")
	}
	c.WithdrawReason = &reason
	if err := s.transition(ctx, c, models.CaseStatusWithdrawn); err != nil {
		return err
	}
	s.record(ctx, &c.ID, actor, models.AuditActionCaseWithdrawn,
		fmt.Sprintf("Withdrawn case %s: %s", c.CaseID, reason))
	return nil
}

// Invalidate marks a case invalid. Terminal; the creator or an admin decides.
func (s *CaseService) Invalidate(ctx context.Context, actor *models.User, caseID string, reason string) error {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if actor.ID != c.CreatedBy && !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator or an admin invalidates a case")
	}
	c.InvalidReason = &reason
	if err := s.transition(ctx, c, models.CaseStatusInvalid); err != nil {
		return err
	}
	s.record(ctx, &c.ID, actor, models.AuditActionCaseInvalidated,
		fmt.Sprintf("Marked case %s invalid: %s", c.CaseID, reason))
	return nil
}

// Reopen moves a closed case back under review. Admin only; the closure flags
// are reset so the protocol restarts from scratch.
func (s *CaseService) Reopen(ctx context.Context, actor *models.User, caseID string) error {
	if !actor.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins reopen cases")
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Status != models.CaseStatusClosed {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only closed cases can be reopened")
	}
	c.ClosureRequested = false
	c.ClosureCreatorApproved = false
	c.ClosureAdminApproved = false
	if err := s.transition(ctx, c, models.CaseStatusUnderReview); err != nil {
		return err
	}
	s.record(ctx, &c.ID, actor, models.AuditActionCaseReopened, fmt.Sprintf("Reopened case %s", c.CaseID))
	return nil
}

// transition validates and persists a status move.
func (s *CaseService) transition(ctx context.Context, c *models.Case, to models.CaseStatus) error {
	if !CanTransition(c.Status, to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move case from %q to %q", c.Status, to))
	}
	c.Status = to
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateLifecycle(ctx, c); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist case transition")
	}
	return nil
}

// load resolves a case by internal UUID or by its human-readable identifier.
func (s *CaseService) load(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	c, err = s.repo.GetByCaseID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

func (s *CaseService) cipherFor(ctx context.Context, c *models.Case) (*crypto.Cipher, error) {
	key, err := s.repo.GetKey(ctx, c.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInternal, "case has no encryption key")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case key")
	}
	cipher, err := crypto.NewCipher(key.Key, key.IV, s.logger)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build case cipher")
	}
	return cipher, nil
}

// sealFields encrypts the six sensitive fields in place. Sealing an already
// sealed case is a no-op.
func (s *CaseService) sealFields(c *models.Case, cipher *crypto.Cipher) error {
	if c.FieldsEncrypted {
		return nil
	}
	fields := []*string{&c.Title, &c.Description, &c.Category, &c.StatusNotes, &c.FinalReport, &c.Conclusion}
	for _, field := range fields {
		sealed, err := cipher.EncryptField(*field)
		if err != nil {
			return err
		}
		*field = sealed
	}
	c.FieldsEncrypted = true
	return nil
}

// openFields decrypts the sensitive fields in place. A field that fails to
// decrypt keeps its stored value.
func (s *CaseService) openFields(c *models.Case, cipher *crypto.Cipher) {
	if !c.FieldsEncrypted {
		return
	}
	fields := []*string{&c.Title, &c.Description, &c.Category, &c.StatusNotes, &c.FinalReport, &c.Conclusion}
	for _, field := range fields {
		*field = cipher.DecryptField(*field)
	}
	c.FieldsEncrypted = false
}

func (s *CaseService) canRead(ctx context.Context, actor *models.User, c *models.Case) bool {
	if actor.IsStaff() || actor.Role == models.RoleAuditor || actor.Role == models.RoleCustodian {
		return true
	}
	return s.isCreatorOrAssigned(ctx, actor, c)
}

func (s *CaseService) canWrite(ctx context.Context, actor *models.User, c *models.Case) bool {
	if !models.Allows(actor, models.ActionCaseEdit) {
		return false
	}
	if actor.IsStaff() {
		return true
	}
	return s.isCreatorOrAssigned(ctx, actor, c)
}

func (s *CaseService) isCreatorOrAssigned(ctx context.Context, actor *models.User, c *models.Case) bool {
	if actor.ID == c.CreatedBy {
		return true
	}
	ids, err := s.repo.ListInvestigators(ctx, c.ID)
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

func (s *CaseService) verifyInvestigators(ctx context.Context, ids []string) error {
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load investigators")
	}
	if len(users) != len(ids) {
		return appErrors.Clone(appErrors.ErrValidation, "one or more investigators do not exist")
	}
	for _, u := range users {
		if u.Role != models.RoleInvestigator && u.Role != models.RoleAnalyst {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("user %s is not an investigator or analyst", u.ID))
		}
		if !u.Verified {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not verified", u.ID))
		}
	}
	return nil
}

// record appends an audit row. The trail never blocks the primary action.
func (s *CaseService) record(ctx context.Context, caseID *string, actor *models.User, action, details string) {
	entry := &models.CaseAuditLog{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		UserName:  actor.FullName,
		Action:    action,
		Details:   details,
		Timestamp: s.now(),
	}
	actorID := actor.ID
	entry.UserID = &actorID
	if err := s.audit.InsertCaseLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record case audit log",
			zap.String("action", action), zap.Error(err))
	}
}

func (s *CaseService) toDetail(ctx context.Context, c *models.Case, cipher *crypto.Cipher) (*dto.CaseDetail, error) {
	view := *c
	s.openFields(&view, cipher)

	investigators, err := s.repo.ListInvestigators(ctx, c.ID)
	if err != nil {
		s.logger.Warn("failed to load case investigators", zap.Error(err))
	}
	if investigators == nil {
		investigators = []string{}
	}

	return &dto.CaseDetail{
		ID:                    view.ID,
		CaseID:                view.CaseID,
		Title:                 view.Title,
		Description:           view.Description,
		Category:              view.Category,
		StatusNotes:           view.StatusNotes,
		FinalReport:           view.FinalReport,
		Conclusion:            view.Conclusion,
		Status:                view.Status,
		Priority:              view.Priority,
		CreatedBy:             view.CreatedBy,
		AssignedInvestigators: investigators,
		ClosureRequested:      view.ClosureRequested,
		ClosureApproved:       view.ClosureCreatorApproved && view.ClosureAdminApproved,
		CreatedAt:             view.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             view.UpdatedAt.Format(time.RFC3339),
	}, nil
}
