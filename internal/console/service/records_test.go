package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
)

type stubSender struct {
	configured bool
	calls      int
}

func (s *stubSender) Configured() bool { return s.configured }

func (s *stubSender) Submit(_ context.Context, entries []domain.FormDataEntry) domain.BatchStatus {
	s.calls++
	return domain.BatchStatus{Type: domain.BatchSuccess, Total: len(entries), Succeeded: len(entries)}
}

type stubBus struct {
	err   error
	calls int
}

func (b *stubBus) PublishRefresh(context.Context) error {
	b.calls++
	return b.err
}

type stubRefresher struct{ calls int }

func (r *stubRefresher) Refresh(context.Context) (engine.AppState, error) {
	r.calls++
	return engine.AppState{}, nil
}

func TestRecordService_RefreshRouting(t *testing.T) {
	one := []domain.FormDataEntry{{IndicatorID: "a", Date: "2024-05-01", Value: domain.Number(1)}}

	t.Run("published to bus", func(t *testing.T) {
		bus, ref := &stubBus{}, &stubRefresher{}
		NewRecordService(&stubSender{configured: true}, bus, ref, zap.NewNop()).Submit(context.Background(), one)
		assert.Equal(t, 1, bus.calls)
		assert.Zero(t, ref.calls)
	})

	t.Run("publish failure refreshes locally", func(t *testing.T) {
		bus, ref := &stubBus{err: errors.New("redis down")}, &stubRefresher{}
		NewRecordService(&stubSender{configured: true}, bus, ref, zap.NewNop()).Submit(context.Background(), one)
		assert.Equal(t, 1, bus.calls)
		assert.Equal(t, 1, ref.calls)
	})

	t.Run("no bus", func(t *testing.T) {
		ref := &stubRefresher{}
		NewRecordService(&stubSender{configured: true}, nil, ref, zap.NewNop()).Submit(context.Background(), one)
		assert.Equal(t, 1, ref.calls)
	})

	t.Run("nothing sent", func(t *testing.T) {
		ref := &stubRefresher{}
		NewRecordService(&stubSender{}, nil, ref, zap.NewNop()).Submit(context.Background(), one)
		NewRecordService(&stubSender{configured: true}, nil, ref, zap.NewNop()).Submit(context.Background(), nil)
		assert.Zero(t, ref.calls)
	})
}
