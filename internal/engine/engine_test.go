package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

// fakeSource - управляемый DashboardSource для тестов
type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context) (*domain.DashboardData, error)
}

func (f *fakeSource) FetchDashboard(ctx context.Context) (*domain.DashboardData, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeSource) set(fn func(ctx context.Context) (*domain.DashboardData, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func returning(d *domain.DashboardData) func(context.Context) (*domain.DashboardData, error) {
	return func(context.Context) (*domain.DashboardData, error) { return d, nil }
}

func failing(msg string) func(context.Context) (*domain.DashboardData, error) {
	return func(context.Context) (*domain.DashboardData, error) { return nil, errors.New(msg) }
}

func dataset(title string, sectorIDs ...string) *domain.DashboardData {
	d := &domain.DashboardData{Title: title, LastUpdated: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)}
	for _, id := range sectorIDs {
		d.Sectors = append(d.Sectors, domain.Sector{
			ID:   id,
			Name: id,
			Indicators: []domain.Indicator{
				{ID: id + "_a", Name: "A", Value: domain.Number(1), Format: domain.FormatNumber, IsMandatory: true},
			},
		})
	}
	return d
}
