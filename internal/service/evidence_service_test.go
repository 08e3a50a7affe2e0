package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/crypto"
	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
)

type mockEvidenceRepo struct {
	items map[string]models.Evidence
}

func newMockEvidenceRepo() *mockEvidenceRepo {
	return &mockEvidenceRepo{items: make(map[string]models.Evidence)}
}

func (m *mockEvidenceRepo) Create(ctx context.Context, e *models.Evidence) error {
	m.items[e.ID] = *e
	return nil
}

func (m *mockEvidenceRepo) GetByID(ctx context.Context, id string) (*models.Evidence, error) {
	if e, ok := m.items[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvidenceRepo) ListByCase(ctx context.Context, caseID string) ([]models.Evidence, error) {
	var out []models.Evidence
	for _, e := range m.items {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEvidenceRepo) UpdateDescription(ctx context.Context, id, description string) error {
	if e, ok := m.items[id]; ok {
		e.Description = description
		m.items[id] = e
	}
	return nil
}

func (m *mockEvidenceRepo) UpdateStatus(ctx context.Context, id string, status models.MediaStatus) error {
	if e, ok := m.items[id]; ok {
		e.Status = status
		m.items[id] = e
	}
	return nil
}

type mockCaseReader struct {
	cases map[string]models.Case
}

func (m *mockCaseReader) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockEvidenceAudit struct {
	entries []models.EvidenceAuditLog
}

func (m *mockEvidenceAudit) InsertEvidenceLog(ctx context.Context, entry *models.EvidenceAuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockEvidenceAudit) actions() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockCustodyGate struct {
	storage       *models.CaseStorage
	gateErr       error
	uploadDenied  bool
	stored        []string
	accessActions []string
	storeEvidence error
}

func (m *mockCustodyGate) GateUpload(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	if m.gateErr != nil {
		return nil, m.gateErr
	}
	return m.storage, nil
}

func (m *mockCustodyGate) CanUpload(ctx context.Context, actor *models.User, storage *models.CaseStorage) bool {
	return !m.uploadDenied
}

func (m *mockCustodyGate) StorageByCase(ctx context.Context, caseID string) (*models.CaseStorage, error) {
	return m.storage, nil
}

func (m *mockCustodyGate) StoreEvidence(ctx context.Context, s *models.CaseStorage, ev *models.Evidence, actor *models.User) error {
	if m.storeEvidence != nil {
		return m.storeEvidence
	}
	m.stored = append(m.stored, ev.ID)
	return nil
}

func (m *mockCustodyGate) RecordEvidenceAccess(ctx context.Context, ev *models.Evidence, actor *models.User, action string) {
	m.accessActions = append(m.accessActions, action)
}

type mockBlobStore struct {
	blobs   map[string][]byte
	deleted []string
	putErr  error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.blobs[key] = data
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.blobs[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("blob %s not found", key)
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	delete(m.blobs, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newEvidenceFixture(t *testing.T) (*EvidenceService, *mockEvidenceRepo, *mockCustodyGate, *mockEvidenceAudit, *mockBlobStore) {
	t.Helper()
	pair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	repo := newMockEvidenceRepo()
	cases := &mockCaseReader{cases: map[string]models.Case{
		"case-uuid-1": {ID: "case-uuid-1", CaseID: "CASE202403150001", Status: models.CaseStatusUnderReview},
		"case-uuid-2": {ID: "case-uuid-2", CaseID: "CASE202403150002", Status: models.CaseStatusWithdrawn},
	}}
	gate := &mockCustodyGate{storage: &models.CaseStorage{
		ID:     "storage-1",
		CaseID: "case-uuid-1",
		Key:    pair.Key,
		IV:     pair.IV,
	}}
	audit := &mockEvidenceAudit{}
	blobs := newMockBlobStore()
	svc := NewEvidenceService(repo, cases, gate, audit, blobs, validator.New(), zap.NewNop(), 1<<20)
	return svc, repo, gate, audit, blobs
}

func uploadTestEvidence(t *testing.T, svc *EvidenceService, data []byte) *dto.EvidenceMetadata {
	t.Helper()
	actor := testActor("inv-1", models.RoleInvestigator)
	meta, err := svc.Upload(context.Background(), actor, "case-uuid-1", "capture.pcap", data, dto.UploadEvidenceRequest{
		Description: "network capture from the incident window",
	})
	require.NoError(t, err)
	return meta
}

func TestEvidenceServiceUploadSealsAndFingerprintsContent(t *testing.T) {
	svc, repo, gate, audit, blobs := newEvidenceFixture(t)
	data := []byte("raw packet bytes")

	meta := uploadTestEvidence(t, svc, data)

	sha := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sha[:]), meta.SHA256)
	assert.Equal(t, models.MediaStatusValid, meta.Status)
	assert.Equal(t, models.MediaTypeOther, meta.MediaType)
	assert.Equal(t, int64(len(data)), meta.SizeBytes)

	stored := repo.items[meta.ID]
	sealed, err := blobs.Get(context.Background(), stored.BlobKey)
	require.NoError(t, err)
	assert.NotEqual(t, data, sealed)

	assert.Contains(t, gate.stored, meta.ID)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceUploaded)
}

func TestEvidenceServiceUploadRejectsEmptyFile(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)
	actor := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "empty.bin", nil, dto.UploadEvidenceRequest{
		Description: "nothing",
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestEvidenceServiceUploadRejectsOversizedFile(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)
	actor := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "huge.bin", make([]byte, 1<<21), dto.UploadEvidenceRequest{
		Description: "too large",
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestEvidenceServiceUploadRejectsTerminalCase(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)
	actor := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-2", "late.bin", []byte("x"), dto.UploadEvidenceRequest{
		Description: "after withdrawal",
	})
	assertErrCode(t, err, appErrors.ErrCaseReadOnly.Code)
}

func TestEvidenceServiceUploadBlockedByLockedStorage(t *testing.T) {
	svc, _, gate, _, _ := newEvidenceFixture(t)
	gate.gateErr = appErrors.Clone(appErrors.ErrStorageLocked, "unlock the case storage before uploading")
	actor := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "blocked.bin", []byte("x"), dto.UploadEvidenceRequest{
		Description: "should not land",
	})
	assertErrCode(t, err, appErrors.ErrStorageLocked.Code)
}

func TestEvidenceServiceUploadByCaseCreator(t *testing.T) {
	svc, _, gate, _, _ := newEvidenceFixture(t)
	creator := testActor("creator-1", models.RoleRegularUser)

	meta, err := svc.Upload(context.Background(), creator, "case-uuid-1", "statement.pdf", []byte("witness statement"), dto.UploadEvidenceRequest{
		Description: "signed witness statement",
	})
	require.NoError(t, err)
	assert.Contains(t, gate.stored, meta.ID)
}

func TestEvidenceServiceUploadRejectedWithoutStorageAccess(t *testing.T) {
	svc, _, gate, _, blobs := newEvidenceFixture(t)
	gate.uploadDenied = true
	actor := testActor("creator-2", models.RoleRegularUser)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "x.bin", []byte("x"), dto.UploadEvidenceRequest{
		Description: "no relationship with the case",
	})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
	assert.Empty(t, blobs.blobs)
}

func TestEvidenceServiceUploadForbiddenRole(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)
	actor := testActor("auditor-1", models.RoleAuditor)

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "x.bin", []byte("x"), dto.UploadEvidenceRequest{
		Description: "auditors observe, never touch",
	})
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestEvidenceServiceUploadRollsBackBlobOnRepoFailure(t *testing.T) {
	svc, repo, _, _, blobs := newEvidenceFixture(t)
	actor := testActor("inv-1", models.RoleInvestigator)

	// Force a persistence failure after the blob write.
	failing := &failingEvidenceRepo{mockEvidenceRepo: repo}
	svc.repo = failing

	_, err := svc.Upload(context.Background(), actor, "case-uuid-1", "x.bin", []byte("x"), dto.UploadEvidenceRequest{
		Description: "should roll back",
	})
	require.Error(t, err)
	assert.Empty(t, blobs.blobs)
	assert.NotEmpty(t, blobs.deleted)
}

type failingEvidenceRepo struct {
	*mockEvidenceRepo
}

func (f *failingEvidenceRepo) Create(ctx context.Context, e *models.Evidence) error {
	return fmt.Errorf("insert failed")
}

func TestEvidenceServiceDownloadRoundTrip(t *testing.T) {
	svc, _, gate, audit, _ := newEvidenceFixture(t)
	data := []byte("raw packet bytes")
	meta := uploadTestEvidence(t, svc, data)

	actor := testActor("inv-1", models.RoleInvestigator)
	ev, got, err := svc.Download(context.Background(), actor, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "capture.pcap", ev.OriginalFilename)
	assert.Contains(t, gate.accessActions, models.CustodyActionDownloaded)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceDownloaded)
}

func TestEvidenceServiceGetRecordsView(t *testing.T) {
	svc, _, gate, audit, _ := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("bytes"))

	actor := testActor("inv-1", models.RoleInvestigator)
	got, err := svc.Get(context.Background(), actor, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.SHA256, got.SHA256)
	assert.Contains(t, gate.accessActions, models.CustodyActionViewed)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceViewed)
}

func TestEvidenceServiceUpdateDescriptionKeepsHashes(t *testing.T) {
	svc, repo, _, audit, _ := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("bytes"))

	actor := testActor("inv-1", models.RoleInvestigator)
	updated, err := svc.UpdateDescription(context.Background(), actor, meta.ID, dto.UpdateEvidenceDescriptionRequest{
		Description: "relabelled after triage",
	})
	require.NoError(t, err)
	assert.Equal(t, "relabelled after triage", updated.Description)
	assert.Equal(t, meta.SHA256, updated.SHA256)
	assert.Equal(t, meta.MD5, updated.MD5)
	assert.Equal(t, "relabelled after triage", repo.items[meta.ID].Description)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceDescEdited)
}

func TestEvidenceServiceUpdateDescriptionRejectsInvalidEvidence(t *testing.T) {
	svc, repo, _, _, _ := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("bytes"))

	stored := repo.items[meta.ID]
	stored.Status = models.MediaStatusInvalid
	repo.items[meta.ID] = stored

	actor := testActor("inv-1", models.RoleInvestigator)
	_, err := svc.UpdateDescription(context.Background(), actor, meta.ID, dto.UpdateEvidenceDescriptionRequest{
		Description: "too late",
	})
	assertErrCode(t, err, appErrors.ErrEvidenceImmutable.Code)
}

func TestEvidenceServiceInvalidateAdminOnly(t *testing.T) {
	svc, repo, _, audit, _ := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("bytes"))

	inv := testActor("inv-1", models.RoleInvestigator)
	err := svc.Invalidate(context.Background(), inv, meta.ID, "chain broken")
	assertErrCode(t, err, appErrors.ErrForbidden.Code)

	admin := testActor("admin-1", models.RoleAdmin)
	require.NoError(t, svc.Invalidate(context.Background(), admin, meta.ID, "chain broken"))
	assert.Equal(t, models.MediaStatusInvalid, repo.items[meta.ID].Status)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceInvalidated)

	err = svc.Invalidate(context.Background(), admin, meta.ID, "again")
	assertErrCode(t, err, appErrors.ErrConflict.Code)
}

func TestEvidenceServiceVerifyIntact(t *testing.T) {
	svc, _, gate, audit, _ := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("pristine bytes"))

	actor := testActor("analyst-1", models.RoleAnalyst)
	result, err := svc.Verify(context.Background(), actor, meta.ID)
	require.NoError(t, err)
	assert.True(t, result.Intact)
	assert.Equal(t, result.StoredSHA256, result.ActualSHA256)
	assert.Contains(t, gate.accessActions, models.CustodyActionVerified)
	assert.Contains(t, audit.actions(), models.AuditActionEvidenceVerified)
}

func TestEvidenceServiceVerifyDetectsTampering(t *testing.T) {
	svc, repo, _, _, blobs := newEvidenceFixture(t)
	meta := uploadTestEvidence(t, svc, []byte("pristine bytes"))

	// Swap the sealed blob for a different valid ciphertext.
	tampered := uploadTestEvidence(t, svc, []byte("different bytes"))
	original := repo.items[meta.ID]
	blobs.blobs[original.BlobKey] = blobs.blobs[repo.items[tampered.ID].BlobKey]

	actor := testActor("analyst-1", models.RoleAnalyst)
	result, err := svc.Verify(context.Background(), actor, meta.ID)
	require.NoError(t, err)
	assert.False(t, result.Intact)
	assert.NotEqual(t, result.StoredSHA256, result.ActualSHA256)
}

func TestEvidenceServiceVerifyCaseReport(t *testing.T) {
	svc, repo, _, _, blobs := newEvidenceFixture(t)
	uploadTestEvidence(t, svc, []byte("pristine bytes"))
	tampered := uploadTestEvidence(t, svc, []byte("soon to be swapped"))
	donor := uploadTestEvidence(t, svc, []byte("donor ciphertext"))
	blobs.blobs[repo.items[tampered.ID].BlobKey] = blobs.blobs[repo.items[donor.ID].BlobKey]

	actor := testActor("analyst-1", models.RoleAnalyst)
	report, err := svc.VerifyCase(context.Background(), actor, "case-uuid-1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalEvidence)
	assert.Equal(t, 2, report.IntactCount)
	assert.Equal(t, 1, report.TamperedCount)
	assert.Len(t, report.Results, 3)
}

func TestEvidenceServiceVerifyCaseForbiddenRole(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)

	_, err := svc.VerifyCase(context.Background(), testActor("inv-1", models.RoleInvestigator), "case-uuid-1")
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestEvidenceServiceListByCase(t *testing.T) {
	svc, _, _, _, _ := newEvidenceFixture(t)
	uploadTestEvidence(t, svc, []byte("one"))
	uploadTestEvidence(t, svc, []byte("two"))

	actor := testActor("inv-1", models.RoleInvestigator)
	items, err := svc.ListByCase(context.Background(), actor, "case-uuid-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, models.MediaTypeImage, detectMediaType("photo.JPG", ""))
	assert.Equal(t, models.MediaTypeVideo, detectMediaType("clip.mp4", ""))
	assert.Equal(t, models.MediaTypeDocument, detectMediaType("report.pdf", ""))
	assert.Equal(t, models.MediaTypeText, detectMediaType("notes.txt", ""))
	assert.Equal(t, models.MediaTypeOther, detectMediaType("dump.raw", ""))
	assert.Equal(t, models.MediaTypeAudio, detectMediaType("anything.bin", models.MediaTypeAudio))
}
