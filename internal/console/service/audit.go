package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/audit"
	"github.com/xela07ax/kpi-dashboard/internal/repository/postgres"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

var ErrJournalUnavailable = errors.New("submission journal storage is not configured")

// AuditLogProvider описывает контракт для чтения журнала отправок.
type AuditLogProvider interface {
	FetchLogs(ctx context.Context, sectorID, indicatorID string, limit int) ([]audit.SubmissionEvent, error)
	Stats(ctx context.Context, window time.Duration) (*postgres.SubmissionStats, error)
}

type AuditService struct {
	repo AuditLogProvider // nil - журнал пишется только в лог
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// FetchLogs запрашивает журнал с фильтрацией. Пустые ID означают «все».
func (s *AuditService) FetchLogs(ctx context.Context, sectorID, indicatorID string, limit int) ([]audit.SubmissionEvent, error) {
	if s.repo == nil {
		return nil, ErrJournalUnavailable
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	logs, err := s.repo.FetchLogs(ctx, sectorID, indicatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	return logs, nil
}

func (s *AuditService) Stats(ctx context.Context, window time.Duration) (*postgres.SubmissionStats, error) {
	if s.repo == nil {
		return nil, ErrJournalUnavailable
	}
	stats, err := s.repo.Stats(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch stats: %w", err)
	}
	return stats, nil
}
