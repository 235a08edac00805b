package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/engine"
)

var (
	ErrNoData            = errors.New("dashboard data unavailable")
	ErrIndicatorNotFound = errors.New("indicator not found")
)

// DashboardLoader - то, что нужно сервису от engine.Loader
type DashboardLoader interface {
	State() engine.AppState
	Load(ctx context.Context) (engine.AppState, error)
}

type DashboardService struct {
	loader DashboardLoader
	views  *ViewBuilder
	logger *zap.Logger
}

func NewDashboardService(loader DashboardLoader, views *ViewBuilder, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		loader: loader,
		views:  views,
		logger: logger.With(zap.String("mod", "dashboard-service")),
	}
}

func (s *DashboardService) State() engine.AppState {
	return s.loader.State()
}

// View возвращает форматированный дашборд. Без данных - ErrNoData.
func (s *DashboardService) View() (*DashboardView, error) {
	st := s.loader.State()
	if st.Data == nil {
		return nil, ErrNoData
	}
	return s.views.Dashboard(st), nil
}

func (s *DashboardService) Detail(sectorID, indicatorID string) (*DetailView, error) {
	st := s.loader.State()
	if st.Data == nil {
		return nil, ErrNoData
	}
	sector, ind, ok := st.Data.FindIndicator(sectorID, indicatorID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrIndicatorNotFound, sectorID, indicatorID)
	}
	return s.views.Detail(*sector, *ind), nil
}

// Reload - обычная (не тихая) перезагрузка. Ошибка загрузки не теряет состояние:
// оно возвращается вместе с ней.
func (s *DashboardService) Reload(ctx context.Context) (engine.AppState, error) {
	st, err := s.loader.Load(ctx)
	if err != nil && !errors.Is(err, engine.ErrLoadInProgress) {
		s.logger.Warn("dashboard reload failed", zap.Error(err))
	}
	return st, err
}
