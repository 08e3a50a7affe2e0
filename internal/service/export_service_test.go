package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	"github.com/veridex/custody-api/internal/repository"
	"github.com/veridex/custody-api/pkg/jobs"
	"github.com/veridex/custody-api/pkg/storage"
)

type mockExportFiles struct {
	dir     string
	saved   []string
	removed []string
}

func (m *mockExportFiles) Save(filename string, data []byte) (string, error) {
	full := filepath.Join(m.dir, filename)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockExportFiles) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(m.dir, filename))
}

func (m *mockExportFiles) Remove(filename string) error {
	m.removed = append(m.removed, filename)
	return os.Remove(filepath.Join(m.dir, filename))
}

func (m *mockExportFiles) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type mockJobStore struct {
	jobs map[string]models.ExportJob
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]models.ExportJob)}
}

func (m *mockJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	j, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		j.Status = *params.Status
	}
	if params.ResultURL != nil {
		j.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		j.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		j.FinishedAt = params.FinishedAt
	}
	m.jobs[id] = j
	return nil
}

func (m *mockJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, j := range m.jobs {
		if j.Status == models.ExportStatusQueued {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T) (*ExportService, *mockTrailRepo, *mockExportFiles) {
	t.Helper()
	repo := &mockTrailRepo{
		caseLogs: []models.CaseAuditLog{
			{ID: "log-1", UserName: "Dana Reyes", Action: models.AuditActionCaseCreated, Details: "Created case CASE202403150001", Timestamp: time.Now()},
		},
	}
	files := &mockExportFiles{dir: t.TempDir()}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	resolver := &mockAuditCaseResolver{cases: map[string]models.Case{
		"case-uuid-1": {ID: "case-uuid-1", CaseID: "CASE202403150001"},
	}}
	svc := NewExportService(repo, resolver, files, signer, ExportConfig{}, zap.NewNop(), nil, nil)
	return svc, repo, files
}

func TestExportServiceGenerateCaseAuditCSV(t *testing.T) {
	svc, repo, files := newExportFixture(t)
	job := &models.ExportJob{
		ID:   "job-1",
		Type: models.ExportTypeCaseAudit,
		Params: models.ExportJobParams{
			CaseID: "CASE202403150001",
			Format: models.ExportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/audit/exports/download/"))
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	require.Len(t, files.saved, 1)
	assert.True(t, strings.HasSuffix(files.saved[0], ".csv"))

	assert.True(t, repo.lastFilter.OldestFirst)
	assert.True(t, repo.lastFilter.ExcludeMedia)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateChainOfCustodyPDF(t *testing.T) {
	svc, repo, files := newExportFixture(t)
	to := "cust-2"
	repo.custodyLogs = []models.CustodyLog{
		{ID: "cl-1", UserName: "Kim Ortega", Action: models.CustodyActionStored, Details: "Stored disk.img", Timestamp: time.Now()},
		{ID: "cl-2", UserName: "Kim Ortega", Action: models.CustodyActionTransferred, Details: "Handover", ToUserID: &to, Timestamp: time.Now()},
	}
	job := &models.ExportJob{
		ID:   "job-2",
		Type: models.ExportTypeChainOfCustody,
		Params: models.ExportJobParams{
			EvidenceID: "ev-1",
			Format:     models.ExportFormatPDF,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatPDF, result.Format)
	require.Len(t, files.saved, 1)
	assert.True(t, strings.HasSuffix(files.saved[0], ".pdf"))
}

func TestExportServiceGenerateUnknownCase(t *testing.T) {
	svc, _, _ := newExportFixture(t)
	job := &models.ExportJob{
		ID:     "job-3",
		Type:   models.ExportTypeCaseAudit,
		Params: models.ExportJobParams{CaseID: "CASE000000000000", Format: models.ExportFormatCSV},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportJobServiceCreateJob(t *testing.T) {
	exporter, _, _ := newExportFixture(t)
	store := newMockJobStore()
	queue := &mockDispatcher{}
	svc := NewExportJobService(store, queue, exporter, zap.NewNop(), ExportJobConfig{})
	auditor := testActor("aud-1", models.RoleAuditor)

	resp, err := svc.CreateJob(context.Background(), auditor, dto.CreateExportRequest{
		Type:   models.ExportTypeCaseAudit,
		Format: models.ExportFormatCSV,
		CaseID: "CASE202403150001",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	exporter, _, _ := newExportFixture(t)
	svc := NewExportJobService(newMockJobStore(), &mockDispatcher{}, exporter, zap.NewNop(), ExportJobConfig{})
	auditor := testActor("aud-1", models.RoleAuditor)

	_, err := svc.CreateJob(context.Background(), auditor, dto.CreateExportRequest{
		Type:   models.ExportTypeCaseAudit,
		Format: models.ExportFormatCSV,
	})
	require.Error(t, err)

	_, err = svc.CreateJob(context.Background(), auditor, dto.CreateExportRequest{
		Type:   models.ExportTypeEvidenceAudit,
		Format: models.ExportFormatPDF,
	})
	require.Error(t, err)
}

func TestExportJobServiceCreateJobForbidden(t *testing.T) {
	exporter, _, _ := newExportFixture(t)
	svc := NewExportJobService(newMockJobStore(), &mockDispatcher{}, exporter, zap.NewNop(), ExportJobConfig{})
	inv := testActor("inv-1", models.RoleInvestigator)

	_, err := svc.CreateJob(context.Background(), inv, dto.CreateExportRequest{
		Type:   models.ExportTypeCaseAudit,
		Format: models.ExportFormatCSV,
		CaseID: "CASE202403150001",
	})
	require.Error(t, err)
}

func TestExportJobServiceCreateJobMarksFailedOnEnqueueError(t *testing.T) {
	exporter, _, _ := newExportFixture(t)
	store := newMockJobStore()
	queue := &mockDispatcher{err: fmt.Errorf("queue full")}
	svc := NewExportJobService(store, queue, exporter, zap.NewNop(), ExportJobConfig{})
	auditor := testActor("aud-1", models.RoleAuditor)

	_, err := svc.CreateJob(context.Background(), auditor, dto.CreateExportRequest{
		Type:   models.ExportTypeCaseAudit,
		Format: models.ExportFormatCSV,
		CaseID: "CASE202403150001",
	})
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, j := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, j.Status)
	}
}

type stubGenerator struct {
	result *ExportResult
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return g.result, g.err
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	store := newMockJobStore()
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeCaseAudit,
		Status: models.ExportStatusQueued,
	}))
	gen := &stubGenerator{result: &ExportResult{URL: "/api/v1/audit/exports/download/tok"}}
	worker := NewExportWorker(store, gen, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	j := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFinished, j.Status)
	require.NotNil(t, j.ResultURL)
	assert.Equal(t, "/api/v1/audit/exports/download/tok", *j.ResultURL)
	assert.NotNil(t, j.FinishedAt)
}

func TestExportWorkerHandleRequeuesBelowRetryLimit(t *testing.T) {
	store := newMockJobStore()
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		ID:     "job-1",
		Status: models.ExportStatusQueued,
	}))
	gen := &stubGenerator{err: fmt.Errorf("transient failure")}
	worker := NewExportWorker(store, gen, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, store.jobs["job-1"].Status)
}

func TestExportWorkerHandleFailsAtRetryLimit(t *testing.T) {
	store := newMockJobStore()
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		ID:     "job-1",
		Status: models.ExportStatusQueued,
	}))
	gen := &stubGenerator{err: fmt.Errorf("permanent failure")}
	worker := NewExportWorker(store, gen, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)

	j := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFailed, j.Status)
	require.NotNil(t, j.ErrorMessage)
	assert.Equal(t, "permanent failure", *j.ErrorMessage)
}
