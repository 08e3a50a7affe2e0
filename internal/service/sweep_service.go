package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veridex/custody-api/internal/models"
)

type sweepCaseRepository interface {
	PromoteStaleOpen(ctx context.Context, cutoff time.Time) ([]string, error)
}

// SweepConfig tunes the stale-case escalation loop.
type SweepConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// SweepService periodically escalates cases that stayed Open past the
// configured age into Pending Admin Approval, leaving an audit row per case.
type SweepService struct {
	repo   sweepCaseRepository
	audit  caseAuditRepository
	logger *zap.Logger
	cfg    SweepConfig
	now    func() time.Time
}

// NewSweepService constructs a SweepService.
func NewSweepService(repo sweepCaseRepository, audit caseAuditRepository, logger *zap.Logger, cfg SweepConfig) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	return &SweepService{
		repo:   repo,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single sweep pass and returns the promoted case ids.
func (s *SweepService) RunOnce(ctx context.Context) []string {
	cutoff := s.now().Add(-s.cfg.MaxAge)
	ids, err := s.repo.PromoteStaleOpen(ctx, cutoff)
	if err != nil {
		s.logger.Warn("stale case sweep failed", zap.Error(err))
		return nil
	}
	for _, id := range ids {
		caseID := id
		entry := &models.CaseAuditLog{
			ID:        uuid.NewString(),
			CaseID:    &caseID,
			UserName:  "system",
			Action:    models.AuditActionAutoEscalated,
			Details:   "Case open longer than allowed, escalated for admin approval",
			Timestamp: s.now(),
		}
		if err := s.audit.InsertCaseLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record escalation audit log", zap.String("case", id), zap.Error(err))
		}
	}
	if len(ids) > 0 {
		s.logger.Info("escalated stale open cases", zap.Int("count", len(ids)))
	}
	return ids
}
