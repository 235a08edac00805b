package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/audit"
	"github.com/xela07ax/kpi-dashboard/internal/console/service"
	"github.com/xela07ax/kpi-dashboard/internal/repository/postgres"
)

const defaultStatsWindow = time.Hour

type AuditService interface {
	FetchLogs(ctx context.Context, sectorID, indicatorID string, limit int) ([]audit.SubmissionEvent, error)
	Stats(ctx context.Context, window time.Duration) (*postgres.SubmissionStats, error)
}

type AuditHandler struct {
	service AuditService
}

func NewAuditHandler(s AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetLogs возвращает журнал отправок с поддержкой фильтрации
// GET /api/v1/submissions?sector_id=...&indicator_id=...&limit=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	// Извлекаем фильтры из Query-параметров
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.service.FetchLogs(r.Context(), q.Get("sector_id"), q.Get("indicator_id"), limit)
	if err != nil {
		h.fail(w, err, "Failed to fetch submission logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetStats - сводка исходов за окно
// GET /api/v1/submissions/stats?window=1h
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid window")
			return
		}
		window = d
	}

	stats, err := h.service.Stats(r.Context(), window)
	if err != nil {
		h.fail(w, err, "Failed to fetch submission stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AuditHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, service.ErrJournalUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Submission journal is not configured")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}
