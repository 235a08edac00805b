package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
)

// BatchSender - engine.BatchSubmitter
type BatchSender interface {
	Configured() bool
	Submit(ctx context.Context, entries []domain.FormDataEntry) domain.BatchStatus
}

// RecordService отправляет пачку и после нее обновляет дашборд:
// через Redis на всех инстансах или локально, если шины нет или публикация не удалась.
type RecordService struct {
	sender    BatchSender
	bus       engine.RefreshPublisher // nil - Redis не настроен
	refresher engine.Refresher
	logger    *zap.Logger
}

func NewRecordService(sender BatchSender, bus engine.RefreshPublisher, refresher engine.Refresher, logger *zap.Logger) *RecordService {
	return &RecordService{
		sender:    sender,
		bus:       bus,
		refresher: refresher,
		logger:    logger.With(zap.String("mod", "record-service")),
	}
}

func (s *RecordService) Submit(ctx context.Context, entries []domain.FormDataEntry) domain.BatchStatus {
	status := s.sender.Submit(ctx, entries)

	// Ничего не ушло в сеть - перечитывать нечего
	if !s.sender.Configured() || len(entries) == 0 {
		return status
	}

	s.refresh(ctx)
	return status
}

func (s *RecordService) refresh(ctx context.Context) {
	if s.bus != nil {
		err := s.bus.PublishRefresh(ctx)
		if err == nil {
			return
		}
		s.logger.Warn("refresh publish failed, refreshing locally", zap.Error(err))
	}
	if _, err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("post-submission refresh failed", zap.Error(err))
	}
}
