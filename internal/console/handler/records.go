package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/kpi-dashboard/internal/console/service"
	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

const maxRecordsBody = 1 << 20

type RecordService interface {
	Submit(ctx context.Context, entries []domain.FormDataEntry) domain.BatchStatus
}

type FormService interface {
	Sectors() []service.FormSector
}

type RecordHandler struct {
	records RecordService
	forms   FormService
}

func NewRecordHandler(records RecordService, forms FormService) *RecordHandler {
	return &RecordHandler{records: records, forms: forms}
}

// Submit принимает пачку записей (массив FormDataEntry) и отдает итог BatchStatus.
// POST /api/v1/records
func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var entries []domain.FormDataEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordsBody)).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid records payload")
		return
	}

	status := h.records.Submit(r.Context(), entries)

	code := http.StatusOK
	if status.Type == domain.BatchError && status.BatchID == "" {
		// Эндпоинт не настроен: пачка не создавалась, ничего не отправлено
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// FormSectors - шаблон формы ввода
// GET /api/v1/form/sectors
func (h *RecordHandler) FormSectors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.forms.Sectors())
}
