package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/kpi-dashboard/internal/audit"
	"github.com/xela07ax/kpi-dashboard/internal/connectors"
	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

const (
	msgSubmitNotConfigured = "URL do Google Apps Script não configurada para envio."
	msgSubmitEmpty         = "Nenhum dado de indicador foi preenchido para enviar."
	msgSubmitSuccess       = "%d registro(s) do setor foram salvos com sucesso!"
)

// BatchSubmitter отправляет записи строго по одной, с паузой между ними.
// Ошибка одной записи не прерывает пачку.
type BatchSubmitter struct {
	sink    RecordSink // nil - эндпоинт не настроен
	limiter *rate.Limiter
	journal audit.Recorder
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewBatchSubmitter. pacing - минимальный интервал между стартами отправок (0 - без паузы).
func NewBatchSubmitter(sink RecordSink, pacing time.Duration, journal audit.Recorder, metrics *Metrics, logger *zap.Logger) *BatchSubmitter {
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &BatchSubmitter{
		sink:    sink,
		limiter: rate.NewLimiter(limit, 1),
		journal: journal,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "submitter")),
		now:     time.Now,
	}
}

func (b *BatchSubmitter) Configured() bool { return b.sink != nil }

// Submit отправляет пачку и возвращает агрегированный статус.
func (b *BatchSubmitter) Submit(ctx context.Context, entries []domain.FormDataEntry) domain.BatchStatus {
	if b.sink == nil {
		return domain.BatchStatus{Type: domain.BatchError, Message: msgSubmitNotConfigured, Total: len(entries)}
	}
	if len(entries) == 0 {
		return domain.BatchStatus{Type: domain.BatchInfo, Message: msgSubmitEmpty}
	}

	status := domain.BatchStatus{
		BatchID: uuid.NewString(),
		Total:   len(entries),
		Items:   make([]domain.ItemOutcome, 0, len(entries)),
	}
	log := b.logger.With(zap.String("batch_id", status.BatchID), zap.String("trace_id", infra.TraceID(ctx)))

	var firstErr, lastDuplicate string
	for _, entry := range entries {
		outcome := domain.ItemOutcome{IndicatorID: entry.IndicatorID, Date: entry.Date}

		// 1. Пауза между записями. Отмена контекста прекращает отправку остатка.
		if err := b.limiter.Wait(ctx); err != nil {
			outcome.Error = fmt.Sprintf("not sent: %v", err)
			status.Items = append(status.Items, outcome)
			status.Failed++
			if firstErr == "" {
				firstErr = outcome.Error
			}
			continue
		}

		// 2. Отправка
		start := b.now()
		_, err := b.sink.SubmitRecord(ctx, entry)
		elapsed := b.now().Sub(start)

		evtStatus := audit.StatusSuccess
		switch {
		case err == nil:
			outcome.OK = true
			status.Succeeded++
			b.metrics.Submissions.WithLabelValues("ok").Inc()
		case connectors.IsDuplicate(err):
			outcome.Duplicate = true
			outcome.Error = connectors.DisplayMessage(err)
			status.Failed++
			evtStatus = audit.StatusDuplicate
			b.metrics.Submissions.WithLabelValues("duplicate").Inc()
			// Последний дубликат перекрывает предыдущие
			lastDuplicate = outcome.Error
		default:
			outcome.Error = connectors.DisplayMessage(err)
			status.Failed++
			evtStatus = audit.StatusFailed
			b.metrics.Submissions.WithLabelValues("error").Inc()
			if firstErr == "" {
				firstErr = outcome.Error
			}
		}
		if err != nil {
			log.Warn("record submission failed",
				zap.String("indicator_id", entry.IndicatorID),
				zap.String("date", entry.Date),
				zap.Bool("duplicate", outcome.Duplicate),
				zap.Error(err))
		}
		status.Items = append(status.Items, outcome)

		// 3. След в журнал (не блокирует)
		if b.journal != nil {
			b.journal.Record(audit.SubmissionEvent{
				ID:          uuid.NewString(),
				TraceID:     infra.TraceID(ctx),
				BatchID:     status.BatchID,
				Submitter:   infra.UserID(ctx),
				SectorID:    entry.SectorID,
				IndicatorID: entry.IndicatorID,
				RecordDate:  entry.Date,
				Status:      evtStatus,
				Error:       outcome.Error,
				Timestamp:   start.UTC(),
				DurationMs:  elapsed.Milliseconds(),
			})
		}
	}

	// 4. Итог: число неудач и первая ошибка (последний дубликат приоритетнее)
	if status.Failed == 0 {
		status.Type = domain.BatchSuccess
		status.Message = fmt.Sprintf(msgSubmitSuccess, status.Succeeded)
	} else {
		detail := firstErr
		if lastDuplicate != "" {
			detail = lastDuplicate
		}
		status.Type = domain.BatchError
		status.Message = failureMessage(status.Failed, status.Total, detail)
	}

	log.Info("batch submitted",
		zap.Int("total", status.Total),
		zap.Int("succeeded", status.Succeeded),
		zap.Int("failed", status.Failed))
	return status
}

func failureMessage(failed, total int, detail string) string {
	if failed > 1 {
		return fmt.Sprintf("Falha ao enviar %d de %d registros. %s", failed, total, detail)
	}
	return fmt.Sprintf("Falha ao enviar 1 registro. %s", detail)
}
