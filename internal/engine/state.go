package engine

import (
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusLoaded  LoadStatus = "loaded"
	StatusFailed  LoadStatus = "failed"
)

type DataSource string

const (
	SourceNone   DataSource = "none"
	SourceRemote DataSource = "remote"
	SourceSample DataSource = "sample"
)

// AppState - снимок состояния приложения. Значение неизменяемо после публикации:
// переходы ниже возвращают новую копию, Data заменяется целиком.
type AppState struct {
	Status        LoadStatus            `json:"status"`
	Source        DataSource            `json:"source"`
	Data          *domain.DashboardData `json:"data,omitempty"`
	SourceMessage string                `json:"source_message,omitempty"` // Откуда данные
	Warning       string                `json:"warning,omitempty"`        // Баннер деградации
	Error         string                `json:"error,omitempty"`          // Блокирующая ошибка
	LoadedAt      time.Time             `json:"loaded_at,omitzero"`
}

// Blocking - показывать полноэкранную ошибку: данных нет вообще.
func (s AppState) Blocking() bool {
	return s.Status == StatusFailed && s.Data == nil
}

// loadResult - итог одного прохода цепочки remote → sample
type loadResult struct {
	data    *domain.DashboardData
	source  DataSource
	message string
	warning string
	err     error
}

func startLoading(s AppState) AppState {
	s.Status = StatusLoading
	s.Error = ""
	return s
}

// applyLoad - переход после обычной загрузки
func applyLoad(s AppState, r loadResult, now time.Time) AppState {
	if r.err != nil {
		return AppState{
			Status:   StatusFailed,
			Source:   SourceNone,
			Error:    r.err.Error(),
			LoadedAt: now,
		}
	}
	return AppState{
		Status:        StatusLoaded,
		Source:        r.source,
		Data:          r.data,
		SourceMessage: r.message,
		Warning:       r.warning,
		LoadedAt:      now,
	}
}

// applyRefresh - переход после тихой перезагрузки: Status и SourceMessage не трогаем,
// при полном провале оставляем то, что уже показано.
func applyRefresh(s AppState, r loadResult, now time.Time) AppState {
	if r.err != nil {
		return s
	}
	s.Data = r.data
	s.Source = r.source
	s.Warning = r.warning
	s.LoadedAt = now
	return s
}
