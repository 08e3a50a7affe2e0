package service

import (
	"context"
	"database/sql"
	"fmt"
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

type mockCaseRepo struct {
	cases         map[string]models.Case
	keys          map[string]models.EncryptionKey
	investigators map[string][]string
	requests      map[string]models.AssignmentRequest
	seq           int
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{
		cases:         make(map[string]models.Case),
		keys:          make(map[string]models.EncryptionKey),
		investigators: make(map[string][]string),
		requests:      make(map[string]models.AssignmentRequest),
	}
}

func (m *mockCaseRepo) CreateWithKey(ctx context.Context, c *models.Case, key *models.EncryptionKey) error {
	m.seq++
	c.CaseID = fmt.Sprintf("CASE20240315%04d", m.seq)
	m.cases[c.ID] = *c
	m.keys[c.ID] = *key
	return nil
}

func (m *mockCaseRepo) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseRepo) GetByCaseID(ctx context.Context, caseID string) (*models.Case, error) {
	for _, c := range m.cases {
		if c.CaseID == caseID {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseRepo) GetKey(ctx context.Context, caseID string) (*models.EncryptionKey, error) {
	if k, ok := m.keys[caseID]; ok {
		return &k, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseRepo) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	var out []models.Case
	for _, c := range m.cases {
		if filter.CreatedBy != "" && c.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCaseRepo) UpdateFields(ctx context.Context, c *models.Case) error {
	m.cases[c.ID] = *c
	return nil
}

func (m *mockCaseRepo) UpdateLifecycle(ctx context.Context, c *models.Case) error {
	m.cases[c.ID] = *c
	return nil
}

func (m *mockCaseRepo) ListInvestigators(ctx context.Context, caseID string) ([]string, error) {
	return m.investigators[caseID], nil
}

func (m *mockCaseRepo) SetInvestigators(ctx context.Context, caseID string, userIDs []string) error {
	m.investigators[caseID] = userIDs
	return nil
}

func (m *mockCaseRepo) CreateAssignmentRequest(ctx context.Context, req *models.AssignmentRequest) error {
	m.requests[req.ID] = *req
	return nil
}

func (m *mockCaseRepo) GetAssignmentRequest(ctx context.Context, id string) (*models.AssignmentRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseRepo) UpdateAssignmentRequestStatus(ctx context.Context, id, status string, approvedAt *time.Time) error {
	if r, ok := m.requests[id]; ok {
		r.Status = status
		r.ApprovedAt = approvedAt
		m.requests[id] = r
	}
	return nil
}

type mockCaseAudit struct {
	entries []models.CaseAuditLog
}

func (m *mockCaseAudit) InsertCaseLog(ctx context.Context, entry *models.CaseAuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockCaseAudit) actions() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockUserDirectory struct {
	users map[string]models.User
}

func (m *mockUserDirectory) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockProvisioner struct {
	provisioned []string
	err         error
}

func (m *mockProvisioner) ProvisionForCase(ctx context.Context, c *models.Case, actor *models.User) error {
	if m.err != nil {
		return m.err
	}
	m.provisioned = append(m.provisioned, c.CaseID)
	return nil
}

func testActor(id string, role models.UserRole) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", FullName: "User " + id, Role: role, Active: true, Verified: true}
}

func newCaseFixture(t *testing.T) (*CaseService, *mockCaseRepo, *mockCaseAudit, *mockProvisioner) {
	t.Helper()
	repo := newMockCaseRepo()
	audit := &mockCaseAudit{}
	users := &mockUserDirectory{users: map[string]models.User{
		"inv-1": {ID: "inv-1", Role: models.RoleInvestigator, Verified: true},
		"inv-2": {ID: "inv-2", Role: models.RoleAnalyst, Verified: true},
	}}
	prov := &mockProvisioner{}
	svc := NewCaseService(repo, audit, users, prov, validator.New(), zap.NewNop())
	return svc, repo, audit, prov
}

func createTestCase(t *testing.T, svc *CaseService, repo *mockCaseRepo, actor *models.User) *models.Case {
	t.Helper()
	detail, err := svc.Create(context.Background(), actor, dto.CreateCaseRequest{
		Title:       "Server room intrusion",
		Description: "Unauthorized access to rack B4",
		Category:    "physical",
	})
	require.NoError(t, err)
	c := repo.cases[detail.ID]
	return &c
}

func assertErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to models.CaseStatus }{
		{models.CaseStatusOpen, models.CaseStatusPendingApproval},
		{models.CaseStatusOpen, models.CaseStatusUnderReview},
		{models.CaseStatusOpen, models.CaseStatusWithdrawn},
		{models.CaseStatusOpen, models.CaseStatusInvalid},
		{models.CaseStatusPendingApproval, models.CaseStatusOpen},
		{models.CaseStatusPendingApproval, models.CaseStatusUnderReview},
		{models.CaseStatusPendingApproval, models.CaseStatusWithdrawn},
		{models.CaseStatusPendingApproval, models.CaseStatusInvalid},
		{models.CaseStatusUnderReview, models.CaseStatusClosed},
		{models.CaseStatusUnderReview, models.CaseStatusWithdrawn},
		{models.CaseStatusUnderReview, models.CaseStatusInvalid},
		{models.CaseStatusClosed, models.CaseStatusArchived},
		{models.CaseStatusClosed, models.CaseStatusUnderReview},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to models.CaseStatus }{
		{models.CaseStatusOpen, models.CaseStatusClosed},
		{models.CaseStatusOpen, models.CaseStatusArchived},
		{models.CaseStatusPendingApproval, models.CaseStatusClosed},
		{models.CaseStatusClosed, models.CaseStatusOpen},
		{models.CaseStatusClosed, models.CaseStatusWithdrawn},
		{models.CaseStatusArchived, models.CaseStatusUnderReview},
		{models.CaseStatusWithdrawn, models.CaseStatusOpen},
		{models.CaseStatusInvalid, models.CaseStatusOpen},
		{models.CaseStatusUnderReview, models.CaseStatusOpen},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCaseServiceCreateSealsFields(t *testing.T) {
	svc, repo, audit, prov := newCaseFixture(t)
	actor := testActor("creator-1", models.RoleRegularUser)

	detail, err := svc.Create(context.Background(), actor, dto.CreateCaseRequest{
		Title:       "Server room intrusion",
		Description: "Unauthorized access to rack B4",
		Category:    "physical",
	})
	require.NoError(t, err)

	assert.Equal(t, "Server room intrusion", detail.Title)
	assert.Equal(t, models.CaseStatusOpen, detail.Status)
	assert.Equal(t, models.PriorityMedium, detail.Priority)

	stored := repo.cases[detail.ID]
	assert.True(t, stored.FieldsEncrypted)
	assert.NotEqual(t, "Server room intrusion", stored.Title)
	assert.NotEqual(t, "Unauthorized access to rack B4", stored.Description)

	key := repo.keys[detail.ID]
	assert.Len(t, key.Key, 32)
	assert.Len(t, key.IV, 16)

	assert.Contains(t, prov.provisioned, detail.CaseID)
	assert.Contains(t, audit.actions(), models.AuditActionCaseCreated)
}

func TestCaseServiceCreateSurvivesProvisionerFailure(t *testing.T) {
	svc, repo, _, prov := newCaseFixture(t)
	prov.err = fmt.Errorf("no custodian available")
	actor := testActor("creator-1", models.RoleRegularUser)

	detail, err := svc.Create(context.Background(), actor, dto.CreateCaseRequest{
		Title:       "Phishing campaign",
		Description: "Credential harvesting emails",
		Category:    "digital",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.cases, detail.ID)
}

func TestCaseServiceCreateForbiddenRole(t *testing.T) {
	svc, _, _, _ := newCaseFixture(t)
	actor := testActor("cust-1", models.RoleCustodian)

	_, err := svc.Create(context.Background(), actor, dto.CreateCaseRequest{
		Title:       "x",
		Description: "y",
		Category:    "z",
	})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCaseServiceGetDecryptsAndAudits(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	actor := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, actor)

	detail, err := svc.Get(context.Background(), actor, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Server room intrusion", detail.Title)
	assert.Contains(t, audit.actions(), models.AuditActionCaseViewed)
}

func TestCaseServiceGetForbiddenForStranger(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	stranger := testActor("other-1", models.RoleRegularUser)
	_, err := svc.Get(context.Background(), stranger, c.ID)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCaseServiceGetResolvesHumanIdentifier(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	actor := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, actor)

	detail, err := svc.Get(context.Background(), actor, c.CaseID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, detail.ID)
}

func TestCaseServiceUpdateReseals(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	actor := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, actor)

	title := "Server room intrusion (amended)"
	notes := "Badge logs requested"
	detail, err := svc.Update(context.Background(), actor, c.ID, dto.UpdateCaseRequest{
		Title:       &title,
		StatusNotes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, title, detail.Title)
	assert.Equal(t, notes, detail.StatusNotes)

	stored := repo.cases[c.ID]
	assert.True(t, stored.FieldsEncrypted)
	assert.NotEqual(t, title, stored.Title)
	assert.Contains(t, audit.actions(), models.AuditActionCaseEdited)
}

func TestCaseServiceUpdateRejectedWhenClosed(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	actor := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, actor)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusClosed
	repo.cases[c.ID] = stored

	title := "new title"
	_, err := svc.Update(context.Background(), actor, c.ID, dto.UpdateCaseRequest{Title: &title})
	assertErrCode(t, err, appErrors.ErrCaseReadOnly.Code)
}

func TestCaseServiceAssignmentApprovalFlow(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	request, err := svc.ProposeAssignment(context.Background(), creator, c.ID, dto.ProposeAssignmentRequest{
		InvestigatorIDs: []string{"inv-1", "inv-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusPendingAdmin, request.Status)
	assert.Equal(t, models.CaseStatusPendingApproval, repo.cases[c.ID].Status)

	require.NoError(t, svc.ReviewAssignment(context.Background(), admin, request.ID, true))

	assert.ElementsMatch(t, []string{"inv-1", "inv-2"}, repo.investigators[c.ID])
	assert.Equal(t, models.CaseStatusUnderReview, repo.cases[c.ID].Status)
	assert.Equal(t, models.AssignmentStatusApproved, repo.requests[request.ID].Status)
	assert.Contains(t, audit.actions(), models.AuditActionAssignmentApproved)
}

func TestCaseServiceAssignmentRejectionReleasesCase(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	request, err := svc.ProposeAssignment(context.Background(), creator, c.ID, dto.ProposeAssignmentRequest{
		InvestigatorIDs: []string{"inv-1"},
	})
	require.NoError(t, err)
	require.Equal(t, models.CaseStatusPendingApproval, repo.cases[c.ID].Status)

	require.NoError(t, svc.ReviewAssignment(context.Background(), admin, request.ID, false))

	assert.Empty(t, repo.investigators[c.ID])
	assert.Equal(t, models.CaseStatusOpen, repo.cases[c.ID].Status)
	assert.Equal(t, models.AssignmentStatusRejected, repo.requests[request.ID].Status)
}

func TestCaseServiceProposeAssignmentUnknownInvestigator(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	_, err := svc.ProposeAssignment(context.Background(), creator, c.ID, dto.ProposeAssignmentRequest{
		InvestigatorIDs: []string{"ghost"},
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestCaseServiceReviewAssignmentRequiresAdmin(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	request, err := svc.ProposeAssignment(context.Background(), creator, c.ID, dto.ProposeAssignmentRequest{
		InvestigatorIDs: []string{"inv-1"},
	})
	require.NoError(t, err)

	err = svc.ReviewAssignment(context.Background(), creator, request.ID, true)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestCaseServiceClosureNeedsBothApprovals(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored

	require.NoError(t, svc.RequestClosure(context.Background(), creator, c.ID, "investigation complete"))

	stored = repo.cases[c.ID]
	assert.True(t, stored.ClosureRequested)
	assert.True(t, stored.ClosureCreatorApproved)
	assert.False(t, stored.ClosureAdminApproved)
	assert.Equal(t, models.CaseStatusUnderReview, stored.Status)

	require.NoError(t, svc.DecideClosure(context.Background(), admin, c.ID, true))

	stored = repo.cases[c.ID]
	assert.Equal(t, models.CaseStatusClosed, stored.Status)
	assert.Contains(t, audit.actions(), models.AuditActionCaseClosed)
}

func TestCaseServiceClosureRejectionResetsFlags(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored

	require.NoError(t, svc.RequestClosure(context.Background(), creator, c.ID, ""))
	require.NoError(t, svc.DecideClosure(context.Background(), admin, c.ID, false))

	stored = repo.cases[c.ID]
	assert.False(t, stored.ClosureRequested)
	assert.False(t, stored.ClosureCreatorApproved)
	assert.False(t, stored.ClosureAdminApproved)
	assert.Equal(t, models.CaseStatusUnderReview, stored.Status)
}

func TestCaseServiceClosureRequestFromOpenMovesUnderReview(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	require.NoError(t, svc.RequestClosure(context.Background(), creator, c.ID, "nothing left to do"))

	stored := repo.cases[c.ID]
	assert.Equal(t, models.CaseStatusUnderReview, stored.Status)
	assert.True(t, stored.ClosureRequested)
	assert.True(t, stored.ClosureCreatorApproved)
}

func TestCaseServiceClosureRequestRejectedWhilePendingApproval(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusPendingApproval
	repo.cases[c.ID] = stored

	err := svc.RequestClosure(context.Background(), creator, c.ID, "")
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestCaseServiceClosureRequestByUnrelatedUser(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	stranger := testActor("creator-2", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored

	err := svc.RequestClosure(context.Background(), stranger, c.ID, "")
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
	assert.False(t, repo.cases[c.ID].ClosureRequested)
}

func TestCaseServiceClosureRequestByAssignedInvestigator(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	investigator := testActor("inv-1", models.RoleInvestigator)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored
	repo.investigators[c.ID] = []string{"inv-1"}

	require.NoError(t, svc.RequestClosure(context.Background(), investigator, c.ID, "work concluded"))

	stored = repo.cases[c.ID]
	assert.True(t, stored.ClosureRequested)
	assert.False(t, stored.ClosureCreatorApproved)
	assert.False(t, stored.ClosureAdminApproved)
}

func TestCaseServiceClosureDecisionRequiresPendingRequest(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored

	err := svc.DecideClosure(context.Background(), admin, c.ID, true)
	assertErrCode(t, err, appErrors.ErrConflict.Code)
}

func TestCaseServiceAdminClosureRequestClosesOnCreatorApproval(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusUnderReview
	repo.cases[c.ID] = stored

	require.NoError(t, svc.RequestClosure(context.Background(), admin, c.ID, "closing out"))
	require.NoError(t, svc.DecideClosure(context.Background(), creator, c.ID, true))

	assert.Equal(t, models.CaseStatusClosed, repo.cases[c.ID].Status)
}

func TestCaseServiceReopenResetsClosureFlags(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusClosed
	stored.ClosureRequested = true
	stored.ClosureCreatorApproved = true
	stored.ClosureAdminApproved = true
	repo.cases[c.ID] = stored

	require.NoError(t, svc.Reopen(context.Background(), admin, c.ID))

	stored = repo.cases[c.ID]
	assert.Equal(t, models.CaseStatusUnderReview, stored.Status)
	assert.False(t, stored.ClosureRequested)
	assert.False(t, stored.ClosureCreatorApproved)
	assert.False(t, stored.ClosureAdminApproved)
	assert.Contains(t, audit.actions(), models.AuditActionCaseReopened)
}

func TestCaseServiceArchiveOnlyFromClosed(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	admin := testActor("admin-1", models.RoleAdmin)
	c := createTestCase(t, svc, repo, creator)

	err := svc.Archive(context.Background(), admin, c.ID)
	assertErrCode(t, err, appErrors.ErrInvalidTransition.Code)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusClosed
	repo.cases[c.ID] = stored

	require.NoError(t, svc.Archive(context.Background(), admin, c.ID))
	assert.Equal(t, models.CaseStatusArchived, repo.cases[c.ID].Status)
}

func TestCaseServiceArchiveByCreator(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	stranger := testActor("creator-2", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	stored := repo.cases[c.ID]
	stored.Status = models.CaseStatusClosed
	repo.cases[c.ID] = stored

	err := svc.Archive(context.Background(), stranger, c.ID)
	assertErrCode(t, err, appErrors.ErrForbidden.Code)

	require.NoError(t, svc.Archive(context.Background(), creator, c.ID))
	assert.Equal(t, models.CaseStatusArchived, repo.cases[c.ID].Status)
}

func TestCaseServiceWithdrawByCreator(t *testing.T) {
	svc, repo, audit, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	require.NoError(t, svc.Withdraw(context.Background(), creator, c.ID, "filed in error"))

	stored := repo.cases[c.ID]
	assert.Equal(t, models.CaseStatusWithdrawn, stored.Status)
	require.NotNil(t, stored.WithdrawReason)
	assert.Equal(t, "filed in error", *stored.WithdrawReason)
	assert.Contains(t, audit.actions(), models.AuditActionCaseWithdrawn)
}

func TestCaseServiceInvalidateByCreatorOrAdmin(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	stranger := testActor("creator-2", models.RoleRegularUser)
	c := createTestCase(t, svc, repo, creator)

	err := svc.Invalidate(context.Background(), stranger, c.ID, "duplicate")
	assertErrCode(t, err, appErrors.ErrForbidden.Code)

	require.NoError(t, svc.Invalidate(context.Background(), creator, c.ID, "duplicate"))
	assert.Equal(t, models.CaseStatusInvalid, repo.cases[c.ID].Status)
}

func TestCaseServiceListScopedToCreator(t *testing.T) {
	svc, repo, _, _ := newCaseFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)
	other := testActor("creator-2", models.RoleRegularUser)
	createTestCase(t, svc, repo, creator)
	createTestCase(t, svc, repo, other)

	details, pagination, err := svc.List(context.Background(), creator, dto.CaseListFilter{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "creator-1", details[0].CreatedBy)
	assert.Equal(t, 1, pagination.TotalCount)

	admin := testActor("admin-1", models.RoleAdmin)
	details, _, err = svc.List(context.Background(), admin, dto.CaseListFilter{})
	require.NoError(t, err)
	assert.Len(t, details, 2)
}
