package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStorage struct {
	mu      sync.Mutex
	batches [][]SubmissionEvent
	err     error
}

func (s *memStorage) WriteBatch(_ context.Context, events []SubmissionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]SubmissionEvent(nil), events...))
	return s.err
}

func (s *memStorage) all() []SubmissionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SubmissionEvent
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestJournal_FlushesOnBatchSize(t *testing.T) {
	store := &memStorage{}
	j := NewJournal(store, Options{BufferSize: 10, BatchSize: 2, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()
	defer j.Stop()

	j.Record(SubmissionEvent{ID: "1", Status: StatusSuccess})
	j.Record(SubmissionEvent{ID: "2", Status: StatusFailed})

	require.Eventually(t, func() bool { return len(store.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, store.all()[0].Timestamp.IsZero())
}

func TestJournal_StopDrainsBuffer(t *testing.T) {
	store := &memStorage{}
	j := NewJournal(store, Options{BufferSize: 100, BatchSize: 50, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()

	for i := 0; i < 7; i++ {
		j.Record(SubmissionEvent{Status: StatusSuccess})
	}
	j.Stop()

	assert.Len(t, store.all(), 7)

	// После остановки события отбрасываются без паники
	j.Record(SubmissionEvent{ID: "late"})
	j.Stop()
	assert.Len(t, store.all(), 7)
}

func TestJournal_OverflowIsCounted(t *testing.T) {
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "dropped"})
	store := &memStorage{}
	// Воркер не запущен: буфер на одно событие переполняется сразу
	j := NewJournal(store, Options{BufferSize: 1, BatchSize: 10, Dropped: dropped}, zap.NewNop())

	j.Record(SubmissionEvent{ID: "1"})
	j.Record(SubmissionEvent{ID: "2"})
	j.Record(SubmissionEvent{ID: "3"})
	assert.Equal(t, float64(2), testutil.ToFloat64(dropped))

	j.Start()
	j.Stop()
	assert.Len(t, store.all(), 1)
}

func TestJournal_StorageErrorDoesNotStopWorker(t *testing.T) {
	store := &memStorage{err: errors.New("db down")}
	j := NewJournal(store, Options{BufferSize: 10, BatchSize: 1, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()

	j.Record(SubmissionEvent{ID: "1"})
	j.Record(SubmissionEvent{ID: "2"})
	j.Stop()

	assert.Len(t, store.all(), 2)
}

func TestLogStorage(t *testing.T) {
	s := NewLogStorage(zap.NewNop())
	assert.NoError(t, s.WriteBatch(context.Background(), []SubmissionEvent{{ID: "1"}}))
}
