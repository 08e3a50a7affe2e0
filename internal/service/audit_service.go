package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/export"
)

type auditTrailRepository interface {
	ListCaseLogs(ctx context.Context, filter models.AuditFilter) ([]models.CaseAuditLog, error)
	ListEvidenceLogs(ctx context.Context, filter models.AuditFilter) ([]models.EvidenceAuditLog, error)
	ListCustodyLogs(ctx context.Context, evidenceID string) ([]models.CustodyLog, error)
	CountByAction(ctx context.Context) (map[string]int, error)
}

type auditCaseResolver interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	GetByCaseID(ctx context.Context, caseID string) (*models.Case, error)
}

const auditStatsCacheKey = "audit:stats"

// AuditService exposes read-only projections over the append-only trails and
// the synchronous CSV export of a case trail.
type AuditService struct {
	repo   auditTrailRepository
	cases  auditCaseResolver
	cache  *CacheService
	csv    csvRenderer
	logger *zap.Logger
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(repo auditTrailRepository, cases auditCaseResolver, cache *CacheService, csv csvRenderer, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &AuditService{repo: repo, cases: cases, cache: cache, csv: csv, logger: logger}
}

// CaseTrail returns the audit rows of one case, newest first.
func (s *AuditService) CaseTrail(ctx context.Context, actor *models.User, caseRef string, query dto.AuditQuery) ([]models.CaseAuditLog, error) {
	if !models.Allows(actor, models.ActionAuditView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view audit trails")
	}
	c, err := s.resolveCase(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	filter, err := s.toFilter(query)
	if err != nil {
		return nil, err
	}
	filter.CaseID = c.ID

	logs, err := s.repo.ListCaseLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// Combined merges the three trails for the auditor overview of a case.
func (s *AuditService) Combined(ctx context.Context, actor *models.User, caseRef string, query dto.AuditQuery) (*dto.CombinedAuditView, error) {
	if !models.Allows(actor, models.ActionAuditView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view audit trails")
	}
	c, err := s.resolveCase(ctx, caseRef)
	if err != nil {
		return nil, err
	}
	filter, err := s.toFilter(query)
	if err != nil {
		return nil, err
	}
	filter.CaseID = c.ID

	caseLogs, err := s.repo.ListCaseLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list case logs")
	}
	evidenceLogs, err := s.repo.ListEvidenceLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence logs")
	}

	view := &dto.CombinedAuditView{
		CaseLogs:     caseLogs,
		EvidenceLogs: evidenceLogs,
		CustodyLogs:  []models.CustodyLog{},
	}
	if query.EvidenceID != "" {
		custodyLogs, err := s.repo.ListCustodyLogs(ctx, query.EvidenceID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list custody logs")
		}
		view.CustodyLogs = custodyLogs
	}
	return view, nil
}

// EvidenceTrail returns the audit rows of one evidence item, newest first.
// An unknown evidence ID yields an empty trail.
func (s *AuditService) EvidenceTrail(ctx context.Context, actor *models.User, evidenceID string, query dto.AuditQuery) ([]models.EvidenceAuditLog, error) {
	if !models.Allows(actor, models.ActionAuditView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view audit trails")
	}
	filter, err := s.toFilter(query)
	if err != nil {
		return nil, err
	}
	filter.EvidenceID = evidenceID

	logs, err := s.repo.ListEvidenceLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence logs")
	}
	return logs, nil
}

// ExportEvidenceTrailCSV renders one evidence trail as CSV, oldest rows first.
func (s *AuditService) ExportEvidenceTrailCSV(ctx context.Context, actor *models.User, evidenceID string) ([]byte, string, error) {
	if !models.Allows(actor, models.ActionAuditExport) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "role cannot export audit trails")
	}

	logs, err := s.repo.ListEvidenceLogs(ctx, models.AuditFilter{
		EvidenceID:  evidenceID,
		OldestFirst: true,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence logs")
	}

	rows := make([]map[string]string, 0, len(logs))
	for _, entry := range logs {
		rows = append(rows, map[string]string{
			"Timestamp": entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			"User":      entry.UserName,
			"Action":    entry.Action,
			"Details":   entry.Details,
		})
	}
	payload, err := s.csv.Render(export.Dataset{
		Headers: []string{"Timestamp", "User", "Action", "Details"},
		Rows:    rows,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit CSV")
	}
	filename := fmt.Sprintf("evidence_audit_%s.csv", evidenceID)
	return payload, filename, nil
}

// ExportCaseTrailCSV renders the case trail as CSV: oldest rows first, media
// activity excluded, one line per action.
func (s *AuditService) ExportCaseTrailCSV(ctx context.Context, actor *models.User, caseRef string) ([]byte, string, error) {
	if !models.Allows(actor, models.ActionAuditExport) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "role cannot export audit trails")
	}
	c, err := s.resolveCase(ctx, caseRef)
	if err != nil {
		return nil, "", err
	}

	logs, err := s.repo.ListCaseLogs(ctx, models.AuditFilter{
		CaseID:       c.ID,
		OldestFirst:  true,
		ExcludeMedia: true,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}

	payload, err := s.csv.Render(CaseTrailDataset(logs))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit CSV")
	}
	filename := fmt.Sprintf("audit_%s.csv", c.CaseID)
	return payload, filename, nil
}

// CaseTrailDataset shapes audit rows into the canonical export columns.
func CaseTrailDataset(logs []models.CaseAuditLog) export.Dataset {
	rows := make([]map[string]string, 0, len(logs))
	for _, entry := range logs {
		rows = append(rows, map[string]string{
			"Timestamp": entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			"User":      entry.UserName,
			"Action":    entry.Action,
			"Details":   entry.Details,
		})
	}
	return export.Dataset{
		Headers: []string{"Timestamp", "User", "Action", "Details"},
		Rows:    rows,
	}
}

// Stats returns per-action totals over the case trail, cached briefly since
// auditors poll it.
func (s *AuditService) Stats(ctx context.Context, actor *models.User) (map[string]int, error) {
	if !models.Allows(actor, models.ActionAuditView) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view audit stats")
	}

	var cached map[string]int
	if hit, err := s.cache.Get(ctx, auditStatsCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	counts, err := s.repo.CountByAction(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count audit logs")
	}
	if err := s.cache.Set(ctx, auditStatsCacheKey, counts, 0); err != nil {
		s.logger.Warn("failed to cache audit stats", zap.Error(err))
	}
	return counts, nil
}

func (s *AuditService) resolveCase(ctx context.Context, ref string) (*models.Case, error) {
	c, err := s.cases.GetByID(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	c, err = s.cases.GetByCaseID(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

func (s *AuditService) toFilter(query dto.AuditQuery) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		EvidenceID: query.EvidenceID,
		UserID:     query.UserID,
		ActionLike: query.Action,
		Limit:      query.Limit,
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp")
		}
		filter.To = &to
	}
	return filter, nil
}
