package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogStorage пишет события в zap. Используется, когда database.url не задан.
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("submissions")}
}

func (s *LogStorage) WriteBatch(_ context.Context, events []SubmissionEvent) error {
	for _, e := range events {
		s.logger.Info("submission",
			zap.String("id", e.ID),
			zap.String("trace_id", e.TraceID),
			zap.String("batch_id", e.BatchID),
			zap.String("submitter", e.Submitter),
			zap.String("sector_id", e.SectorID),
			zap.String("indicator_id", e.IndicatorID),
			zap.String("record_date", e.RecordDate),
			zap.String("status", e.Status),
			zap.String("error", e.Error),
			zap.Int64("duration_ms", e.DurationMs),
			zap.Time("timestamp", e.Timestamp),
		)
	}
	return nil
}
