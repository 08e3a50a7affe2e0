package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
)

type mockStorageRepo struct {
	storages    map[string]models.CaseStorage
	locations   map[string][]models.StorageLocation
	assignments map[string][]models.CustodianAssignment
	links       map[string]models.EvidenceStorage
	usedSpace   map[string]int64
	custodians  []string
	accessed    []string
}

func newMockStorageRepo() *mockStorageRepo {
	return &mockStorageRepo{
		storages:    make(map[string]models.CaseStorage),
		locations:   make(map[string][]models.StorageLocation),
		assignments: make(map[string][]models.CustodianAssignment),
		links:       make(map[string]models.EvidenceStorage),
		usedSpace:   make(map[string]int64),
	}
}

func (m *mockStorageRepo) Provision(ctx context.Context, storage *models.CaseStorage, location *models.StorageLocation) error {
	m.storages[storage.ID] = *storage
	m.locations[storage.ID] = append(m.locations[storage.ID], *location)
	return nil
}

func (m *mockStorageRepo) GetByCaseID(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	for _, s := range m.storages {
		if s.CaseID == caseID {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStorageRepo) GetByID(ctx context.Context, id string) (*models.CaseStorage, error) {
	if s, ok := m.storages[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStorageRepo) ListActive(ctx context.Context) ([]models.CaseStorage, error) {
	var out []models.CaseStorage
	for _, s := range m.storages {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStorageRepo) SetLocked(ctx context.Context, id string, locked bool) error {
	if s, ok := m.storages[id]; ok {
		s.IsLocked = locked
		m.storages[id] = s
	}
	return nil
}

func (m *mockStorageRepo) ListLocations(ctx context.Context, caseStorageID string) ([]models.StorageLocation, error) {
	return m.locations[caseStorageID], nil
}

func (m *mockStorageRepo) PrimaryLocation(ctx context.Context, caseStorageID string) (*models.StorageLocation, error) {
	locs := m.locations[caseStorageID]
	if len(locs) == 0 {
		return nil, sql.ErrNoRows
	}
	return &locs[0], nil
}

func (m *mockStorageRepo) AddUsedSpace(ctx context.Context, locationID string, delta int64) error {
	m.usedSpace[locationID] += delta
	return nil
}

func (m *mockStorageRepo) AssignLeastLoaded(ctx context.Context, caseStorageID string, assignedBy *string, reason string, now time.Time) (*models.CustodianAssignment, error) {
	if len(m.custodians) == 0 {
		return nil, nil
	}
	assignment := models.CustodianAssignment{
		ID:               "assign-" + caseStorageID,
		CaseStorageID:    caseStorageID,
		CustodianID:      m.custodians[0],
		AssignedBy:       assignedBy,
		AssignedAt:       now,
		IsActive:         true,
		AssignmentReason: reason,
	}
	m.assignments[caseStorageID] = append(m.assignments[caseStorageID], assignment)
	return &assignment, nil
}

func (m *mockStorageRepo) ActiveAssignment(ctx context.Context, caseStorageID string) (*models.CustodianAssignment, error) {
	for _, a := range m.assignments[caseStorageID] {
		if a.IsActive {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStorageRepo) ListAssignments(ctx context.Context, caseStorageID string) ([]models.CustodianAssignment, error) {
	return m.assignments[caseStorageID], nil
}

func (m *mockStorageRepo) CountActiveByCustodian(ctx context.Context, custodianID string) (int, error) {
	count := 0
	for _, list := range m.assignments {
		for _, a := range list {
			if a.IsActive && a.CustodianID == custodianID {
				count++
			}
		}
	}
	return count, nil
}

func (m *mockStorageRepo) Reassign(ctx context.Context, caseStorageID, custodianID string, actorID *string, reason string, now time.Time) (*models.CustodianAssignment, error) {
	list := m.assignments[caseStorageID]
	for i := range list {
		if list[i].IsActive {
			list[i].IsActive = false
			list[i].DeactivatedAt = &now
			list[i].DeactivatedBy = actorID
		}
	}
	assignment := models.CustodianAssignment{
		ID:               "reassign-" + caseStorageID,
		CaseStorageID:    caseStorageID,
		CustodianID:      custodianID,
		AssignedBy:       actorID,
		AssignedAt:       now,
		IsActive:         true,
		AssignmentReason: reason,
	}
	m.assignments[caseStorageID] = append(list, assignment)
	return &assignment, nil
}

func (m *mockStorageRepo) CreateEvidenceLink(ctx context.Context, link *models.EvidenceStorage) error {
	m.links[link.EvidenceID] = *link
	return nil
}

func (m *mockStorageRepo) GetEvidenceLink(ctx context.Context, evidenceID string) (*models.EvidenceStorage, error) {
	if l, ok := m.links[evidenceID]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStorageRepo) RecordAccess(ctx context.Context, evidenceID string, at time.Time) error {
	m.accessed = append(m.accessed, evidenceID)
	return nil
}

func (m *mockStorageRepo) CountEvidenceLinks(ctx context.Context) (int, error) {
	return len(m.links), nil
}

type mockTransferRepo struct {
	transfers map[string]models.CustodyTransfer
}

func newMockTransferRepo() *mockTransferRepo {
	return &mockTransferRepo{transfers: make(map[string]models.CustodyTransfer)}
}

func (m *mockTransferRepo) Create(ctx context.Context, transfer *models.CustodyTransfer) error {
	m.transfers[transfer.ID] = *transfer
	return nil
}

func (m *mockTransferRepo) GetByID(ctx context.Context, id string) (*models.CustodyTransfer, error) {
	if t, ok := m.transfers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTransferRepo) ListPending(ctx context.Context) ([]models.CustodyTransfer, error) {
	var out []models.CustodyTransfer
	for _, t := range m.transfers {
		if t.Status == models.TransferStatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTransferRepo) ListByEvidence(ctx context.Context, evidenceID string) ([]models.CustodyTransfer, error) {
	var out []models.CustodyTransfer
	for _, t := range m.transfers {
		if t.EvidenceID == evidenceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTransferRepo) HasPendingForEvidence(ctx context.Context, evidenceID string) (bool, error) {
	for _, t := range m.transfers {
		if t.EvidenceID == evidenceID && t.Status == models.TransferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTransferRepo) Resolve(ctx context.Context, id, status, reviewNotes string, reviewerID string, at time.Time) error {
	t, ok := m.transfers[id]
	if !ok || t.Status != models.TransferStatusPending {
		return sql.ErrNoRows
	}
	t.Status = status
	t.ReviewNotes = reviewNotes
	t.ApprovedBy = &reviewerID
	t.ApprovedAt = &at
	m.transfers[id] = t
	return nil
}

type mockCustodyAudit struct {
	custodyLogs []models.CustodyLog
	storageLogs []models.StorageLog
}

func (m *mockCustodyAudit) InsertCustodyLog(ctx context.Context, entry *models.CustodyLog) error {
	m.custodyLogs = append(m.custodyLogs, *entry)
	return nil
}

func (m *mockCustodyAudit) InsertStorageLog(ctx context.Context, entry *models.StorageLog) error {
	m.storageLogs = append(m.storageLogs, *entry)
	return nil
}

func (m *mockCustodyAudit) ListRecentCustodyLogs(ctx context.Context, limit int) ([]models.CustodyLog, error) {
	if len(m.custodyLogs) > limit {
		return m.custodyLogs[:limit], nil
	}
	return m.custodyLogs, nil
}

func (m *mockCustodyAudit) custodyActions() []string {
	out := make([]string, 0, len(m.custodyLogs))
	for _, e := range m.custodyLogs {
		out = append(out, e.Action)
	}
	return out
}

func (m *mockCustodyAudit) storageActions() []string {
	out := make([]string, 0, len(m.storageLogs))
	for _, e := range m.storageLogs {
		out = append(out, e.Action)
	}
	return out
}

type mockEvidenceReader struct {
	items map[string]models.Evidence
}

func (m *mockEvidenceReader) GetByID(ctx context.Context, id string) (*models.Evidence, error) {
	if e, ok := m.items[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvidenceReader) CountAll(ctx context.Context) (int, error) {
	return len(m.items), nil
}

type mockUserFinder struct {
	users map[string]models.User
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func newCustodyFixture(t *testing.T) (*CustodyService, *mockStorageRepo, *mockTransferRepo, *mockCustodyAudit, *mockEvidenceReader, *mockCaseRepo) {
	t.Helper()
	storages := newMockStorageRepo()
	storages.custodians = []string{"cust-1"}
	transfers := newMockTransferRepo()
	audit := &mockCustodyAudit{}
	evidence := &mockEvidenceReader{items: map[string]models.Evidence{
		"ev-1": {ID: "ev-1", CaseID: "case-uuid-1", OriginalFilename: "disk.img", SizeBytes: 4096},
	}}
	users := &mockUserFinder{users: map[string]models.User{
		"cust-1":  {ID: "cust-1", Role: models.RoleCustodian, Active: true},
		"cust-2":  {ID: "cust-2", Role: models.RoleCustodian, Active: true},
		"inv-1":   {ID: "inv-1", Role: models.RoleInvestigator, Active: true},
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin, Active: true},
	}}
	cases := newMockCaseRepo()
	cases.cases["case-uuid-1"] = models.Case{
		ID:        "case-uuid-1",
		CaseID:    "CASE202403150001",
		Status:    models.CaseStatusUnderReview,
		CreatedBy: "creator-1",
	}
	svc := NewCustodyService(storages, transfers, audit, evidence, users, cases, validator.New(), zap.NewNop())
	return svc, storages, transfers, audit, evidence, cases
}

func provisionTestStorage(t *testing.T, svc *CustodyService, storages *mockStorageRepo) *models.CaseStorage {
	t.Helper()
	c := &models.Case{ID: "case-uuid-1", CaseID: "CASE202403150001"}
	admin := testActor("admin-1", models.RoleAdmin)
	require.NoError(t, svc.ProvisionForCase(context.Background(), c, admin))
	storage, err := storages.GetByCaseID(context.Background(), c.ID)
	require.NoError(t, err)
	return storage
}

func TestCustodyServiceProvisionForCase(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)

	assert.Equal(t, "STORAGE_CASE202403150001", storage.StorageName)
	assert.Equal(t, "/evidence/CASE202403150001", storage.StoragePath)
	assert.True(t, storage.IsLocked)
	assert.True(t, storage.IsActive)
	assert.Len(t, storage.Key, 32)
	assert.Len(t, storage.IV, 16)

	locations := storages.locations[storage.ID]
	require.Len(t, locations, 1)
	assert.Equal(t, "STORAGE_CASE202403150001_PRIMARY", locations[0].Name)
	assert.Equal(t, models.LocationDigital, locations[0].LocationType)

	active, err := storages.ActiveAssignment(context.Background(), storage.ID)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", active.CustodianID)

	assert.Contains(t, audit.storageActions(), models.StorageActionCreated)
	assert.Contains(t, audit.storageActions(), models.StorageActionCustodianChange)
}

func TestCustodyServiceProvisionWithoutCustodians(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storages.custodians = nil

	c := &models.Case{ID: "case-uuid-1", CaseID: "CASE202403150001"}
	require.NoError(t, svc.ProvisionForCase(context.Background(), c, testActor("admin-1", models.RoleAdmin)))

	storage, err := storages.GetByCaseID(context.Background(), c.ID)
	require.NoError(t, err)
	_, err = storages.ActiveAssignment(context.Background(), storage.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCustodyServiceGateUpload(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)

	_, err := svc.GateUpload(context.Background(), "case-uuid-1")
	assertErrCode(t, err, appErrors.ErrStorageLocked.Code)

	s := storages.storages[storage.ID]
	s.IsLocked = false
	storages.storages[storage.ID] = s

	got, err := svc.GateUpload(context.Background(), "case-uuid-1")
	require.NoError(t, err)
	assert.Equal(t, storage.ID, got.ID)

	s.IsActive = false
	storages.storages[storage.ID] = s
	_, err = svc.GateUpload(context.Background(), "case-uuid-1")
	assertErrCode(t, err, appErrors.ErrStorageInactive.Code)

	_, err = svc.GateUpload(context.Background(), "no-such-case")
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCustodyServiceStorageByCaseIgnoresLock(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)

	got, err := svc.StorageByCase(context.Background(), "case-uuid-1")
	require.NoError(t, err)
	assert.Equal(t, storage.ID, got.ID)
	assert.True(t, got.IsLocked)
}

func TestCustodyServiceListStorages(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	provisionTestStorage(t, svc, storages)

	list, err := svc.ListStorages(context.Background(), testActor("cust-1", models.RoleCustodian))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListStorages(context.Background(), testActor("inv-1", models.RoleInvestigator))
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCustodyServiceSetLock(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	custodian := testActor("cust-1", models.RoleCustodian)

	require.NoError(t, svc.SetLock(context.Background(), custodian, storage.ID, false))
	assert.False(t, storages.storages[storage.ID].IsLocked)
	assert.Contains(t, audit.storageActions(), models.StorageActionUnlock)

	err := svc.SetLock(context.Background(), custodian, storage.ID, false)
	assertErrCode(t, err, appErrors.ErrConflict.Code)
}

func TestCustodyServiceSetLockRejectsOtherCustodian(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)

	other := testActor("cust-2", models.RoleCustodian)
	err := svc.SetLock(context.Background(), other, storage.ID, false)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)

	admin := testActor("admin-1", models.RoleAdmin)
	require.NoError(t, svc.SetLock(context.Background(), admin, storage.ID, false))
}

func TestCustodyServiceSetLockByCaseCreator(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)

	creator := testActor("creator-1", models.RoleRegularUser)
	require.NoError(t, svc.SetLock(context.Background(), creator, storage.ID, false))
	assert.False(t, storages.storages[storage.ID].IsLocked)
	assert.Contains(t, audit.storageActions(), models.StorageActionUnlock)
}

func TestCustodyServiceSetLockByAssignedInvestigator(t *testing.T) {
	svc, storages, _, _, _, cases := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	cases.investigators["case-uuid-1"] = []string{"inv-1"}

	investigator := testActor("inv-1", models.RoleInvestigator)
	require.NoError(t, svc.SetLock(context.Background(), investigator, storage.ID, false))

	stranger := testActor("inv-2", models.RoleInvestigator)
	err := svc.SetLock(context.Background(), stranger, storage.ID, true)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCustodyServiceCanUpload(t *testing.T) {
	svc, storages, _, _, _, cases := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	cases.investigators["case-uuid-1"] = []string{"inv-1"}

	creator := testActor("creator-1", models.RoleRegularUser)
	assert.False(t, svc.CanUpload(context.Background(), creator, storage), "locked storage never accepts uploads")

	s := storages.storages[storage.ID]
	s.IsLocked = false
	storages.storages[storage.ID] = s
	unlocked := &s

	assert.True(t, svc.CanUpload(context.Background(), creator, unlocked))
	assert.True(t, svc.CanUpload(context.Background(), testActor("inv-1", models.RoleInvestigator), unlocked))
	assert.True(t, svc.CanUpload(context.Background(), testActor("cust-1", models.RoleCustodian), unlocked))
	assert.True(t, svc.CanUpload(context.Background(), testActor("admin-1", models.RoleAdmin), unlocked))
	assert.False(t, svc.CanUpload(context.Background(), testActor("creator-2", models.RoleRegularUser), unlocked))
}

func TestCustodyServiceReassignCustodian(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	admin := testActor("admin-1", models.RoleAdmin)

	assignment, err := svc.ReassignCustodian(context.Background(), admin, storage.ID, dto.ReassignCustodianRequest{
		CustodianID: "cust-2",
		Reason:      "workload rebalance",
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-2", assignment.CustodianID)
	assert.True(t, assignment.IsActive)

	active, err := storages.ActiveAssignment(context.Background(), storage.ID)
	require.NoError(t, err)
	assert.Equal(t, "cust-2", active.CustodianID)
	assert.Len(t, storages.assignments[storage.ID], 2)
	assert.Contains(t, audit.storageActions(), models.StorageActionCustodianChange)
}

func TestCustodyServiceReassignRejectsNonCustodian(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	admin := testActor("admin-1", models.RoleAdmin)

	_, err := svc.ReassignCustodian(context.Background(), admin, storage.ID, dto.ReassignCustodianRequest{
		CustodianID: "inv-1",
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestCustodyServiceTransferLifecycle(t *testing.T) {
	svc, _, transfers, audit, _, _ := newCustodyFixture(t)
	requester := testActor("inv-1", models.RoleInvestigator)
	custodian := testActor("cust-1", models.RoleCustodian)

	transfer, err := svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "cust-2",
		Reason:   "lab analysis",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, transfer.Status)
	assert.Equal(t, "inv-1", transfer.FromUserID)

	_, err = svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "cust-2",
		Reason:   "duplicate",
	})
	assertErrCode(t, err, appErrors.ErrConflict.Code)

	require.NoError(t, svc.ReviewTransfer(context.Background(), custodian, transfer.ID, dto.ReviewTransferRequest{
		Decision:    "approve",
		ReviewNotes: "handover witnessed",
	}))

	resolved := transfers.transfers[transfer.ID]
	assert.Equal(t, models.TransferStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ApprovedBy)
	assert.Equal(t, "cust-1", *resolved.ApprovedBy)
	assert.Contains(t, audit.custodyActions(), models.CustodyActionTransferred)

	err = svc.ReviewTransfer(context.Background(), custodian, transfer.ID, dto.ReviewTransferRequest{Decision: "reject"})
	assertErrCode(t, err, appErrors.ErrConflict.Code)
}

func TestCustodyServiceTransferRejectionKeepsTrail(t *testing.T) {
	svc, _, transfers, audit, _, _ := newCustodyFixture(t)
	requester := testActor("inv-1", models.RoleInvestigator)
	custodian := testActor("cust-1", models.RoleCustodian)

	transfer, err := svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "cust-2",
		Reason:   "lab analysis",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReviewTransfer(context.Background(), custodian, transfer.ID, dto.ReviewTransferRequest{
		Decision:    "reject",
		ReviewNotes: "chain paperwork incomplete",
	}))

	resolved := transfers.transfers[transfer.ID]
	assert.Equal(t, models.TransferStatusRejected, resolved.Status)
	assert.Contains(t, audit.custodyActions(), models.CustodyActionTransferDenied)
	assert.NotContains(t, audit.custodyActions(), models.CustodyActionTransferred)

	last := audit.custodyLogs[len(audit.custodyLogs)-1]
	assert.Equal(t, "ev-1", last.EvidenceID)
	assert.Nil(t, last.ToUserID)
	assert.Contains(t, last.Details, "chain paperwork incomplete")
}

func TestCustodyServiceReviewTransferRequiresCustodian(t *testing.T) {
	svc, _, _, _, _, _ := newCustodyFixture(t)
	requester := testActor("inv-1", models.RoleInvestigator)

	transfer, err := svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "cust-2",
		Reason:   "lab analysis",
	})
	require.NoError(t, err)

	err = svc.ReviewTransfer(context.Background(), requester, transfer.ID, dto.ReviewTransferRequest{Decision: "approve"})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCustodyServiceRequestTransferUnknownTarget(t *testing.T) {
	svc, _, _, _, _, _ := newCustodyFixture(t)
	requester := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "ghost",
		Reason:   "lab analysis",
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestCustodyServiceStoreEvidence(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	actor := testActor("inv-1", models.RoleInvestigator)

	ev := &models.Evidence{ID: "ev-1", CaseID: "case-uuid-1", OriginalFilename: "disk.img", SizeBytes: 4096}
	require.NoError(t, svc.StoreEvidence(context.Background(), storage, ev, actor))

	link, err := storages.GetEvidenceLink(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, storages.locations[storage.ID][0].ID, link.StorageLocationID)
	assert.Equal(t, int64(4096), storages.usedSpace[link.StorageLocationID])
	assert.Contains(t, audit.custodyActions(), models.CustodyActionStored)
	assert.Contains(t, audit.storageActions(), models.StorageActionUpload)
}

func TestCustodyServiceRecordEvidenceAccess(t *testing.T) {
	svc, storages, _, audit, _, _ := newCustodyFixture(t)
	actor := testActor("inv-1", models.RoleInvestigator)

	ev := &models.Evidence{ID: "ev-1", CaseID: "case-uuid-1", OriginalFilename: "disk.img"}
	svc.RecordEvidenceAccess(context.Background(), ev, actor, models.CustodyActionDownloaded)

	assert.Contains(t, storages.accessed, "ev-1")
	assert.Contains(t, audit.custodyActions(), models.CustodyActionDownloaded)
}

func TestCustodyServiceDashboard(t *testing.T) {
	svc, storages, _, _, _, _ := newCustodyFixture(t)
	storage := provisionTestStorage(t, svc, storages)
	custodian := testActor("cust-1", models.RoleCustodian)

	ev := &models.Evidence{ID: "ev-1", CaseID: "case-uuid-1", OriginalFilename: "disk.img", SizeBytes: 1024}
	require.NoError(t, svc.StoreEvidence(context.Background(), storage, ev, custodian))

	dash, err := svc.Dashboard(context.Background(), custodian)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.ActiveStorages)
	assert.Equal(t, 1, dash.MyActiveAssignments)
	assert.Equal(t, 1, dash.TotalEvidence)
	assert.Equal(t, 1, dash.EvidenceWithStorage)
	assert.Equal(t, 0, dash.PendingTransfers)
}

func TestCustodyServiceDashboardForbiddenForInvestigator(t *testing.T) {
	svc, _, _, _, _, _ := newCustodyFixture(t)
	_, err := svc.Dashboard(context.Background(), testActor("inv-1", models.RoleInvestigator))
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCustodyServiceChainOfCustody(t *testing.T) {
	svc, _, _, _, _, _ := newCustodyFixture(t)
	requester := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.RequestTransfer(context.Background(), requester, "ev-1", dto.RequestTransferRequest{
		ToUserID: "cust-2",
		Reason:   "lab analysis",
	})
	require.NoError(t, err)

	history, err := svc.ChainOfCustody(context.Background(), requester, "ev-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ev-1", history[0].EvidenceID)
}
