package audit

import "time"

// Исходы отправки записи
const (
	StatusSuccess   = "SUCCESS"
	StatusDuplicate = "DUPLICATE"
	StatusFailed    = "FAILED"
)

// SubmissionEvent - след одной попытки отправить запись показателя в таблицу.
// Сама запись здесь не хранится: только кто, что, когда и чем кончилось.
type SubmissionEvent struct {
	ID          string    `json:"id"`          // UUID события
	TraceID     string    `json:"trace_id"`    // Сквозной ID запроса
	BatchID     string    `json:"batch_id"`    // Пачка, в которой ушла запись
	Submitter   string    `json:"submitter"`   // Кто отправил (из JWT), пусто без auth
	SectorID    string    `json:"sector_id"`
	IndicatorID string    `json:"indicator_id"`
	RecordDate  string    `json:"record_date"` // YYYY-MM-DD
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	DurationMs  int64     `json:"duration_ms"`
}
