package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/kpi-dashboard/internal/console/service"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	State() engine.AppState
	View() (*service.DashboardView, error)
	Detail(sectorID, indicatorID string) (*service.DetailView, error)
	Reload(ctx context.Context) (engine.AppState, error)
}

type DashboardHandler struct {
	service DashboardService
}

func NewDashboardHandler(s DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetState отдает сырой снимок состояния. Если данных нет совсем - 503 с тем же телом.
// GET /api/v1/dashboard
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st := h.service.State()
	writeJSON(w, stateStatus(st), st)
}

// GetView - форматированные плитки по секторам
// GET /api/v1/dashboard/view
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View()
	if err != nil {
		h.noData(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetIndicator - детальная карточка показателя
// GET /api/v1/sectors/{sectorID}/indicators/{indicatorID}
func (h *DashboardHandler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	sectorID := chi.URLParam(r, "sectorID")
	indicatorID := chi.URLParam(r, "indicatorID")

	view, err := h.service.Detail(sectorID, indicatorID)
	switch {
	case errors.Is(err, service.ErrIndicatorNotFound):
		writeError(w, http.StatusNotFound, "Indicator not found")
		return
	case err != nil:
		h.noData(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Reload - обычная перезагрузка. 409, если загрузка уже идет.
// POST /api/v1/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Reload(r.Context())
	if errors.Is(err, engine.ErrLoadInProgress) {
		writeError(w, http.StatusConflict, "Dashboard load already in progress")
		return
	}
	writeJSON(w, stateStatus(st), st)
}

func (h *DashboardHandler) noData(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNoData) {
		// Блокирующая ошибка: отдаем состояние, чтобы клиент показал причину
		writeJSON(w, http.StatusServiceUnavailable, h.service.State())
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to build dashboard view")
}

func stateStatus(st engine.AppState) int {
	if st.Blocking() {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
