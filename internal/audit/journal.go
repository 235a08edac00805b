package audit

/*
Журнал отправок: неблокирующий сбор SubmissionEvent и пакетная запись в хранилище.

- Record никогда не ждет хранилище: событие кладется в буферизованный канал,
  при переполнении сбрасывается с записью в лог (Load Shedding).
- Воркер копит пачку и пишет ее по размеру или по тикеру.
- Stop закрывает вход и ждет, пока воркер вычитает канал и сделает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Storage определяет, куда физически будут сохраняться события
type Storage interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []SubmissionEvent) error
}

// Recorder - то, что нужно отправителю записей
type Recorder interface {
	Record(event SubmissionEvent)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration

	BufferFill prometheus.Gauge   // может быть nil
	Dropped    prometheus.Counter // может быть nil
}

type Journal struct {
	ch     chan SubmissionEvent
	repo   Storage
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex // Record под RLock, Stop под Lock: отправка в закрытый канал невозможна
	closed bool
}

func NewJournal(repo Storage, opts Options, logger *zap.Logger) *Journal {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Journal{
		ch:     make(chan SubmissionEvent, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "journal")),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет. Повторный вызов безопасен.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.mu.Unlock()

	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Record(event SubmissionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("submission event dropped: journal is stopping", zap.String("id", event.ID))
		j.drop()
		return
	}

	select {
	case j.ch <- event:
		if j.opts.BufferFill != nil {
			j.opts.BufferFill.Set(float64(len(j.ch)))
		}
	default:
		// Backpressure: не теряем след целиком - хотя бы в лог
		j.logger.Error("journal_buffer_overflow",
			zap.String("indicator_id", event.IndicatorID),
			zap.String("batch_id", event.BatchID),
			zap.String("status", event.Status),
			zap.String("trace_id", event.TraceID),
		)
		j.drop()
	}
}

func (j *Journal) drop() {
	if j.opts.Dropped != nil {
		j.opts.Dropped.Inc()
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]SubmissionEvent, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже закрыт
		ctx, cancel := context.WithTimeout(context.Background(), j.opts.WriteTimeout)
		defer cancel()
		if err := j.repo.WriteBatch(ctx, batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		if j.opts.BufferFill != nil {
			j.opts.BufferFill.Set(float64(len(j.ch)))
		}
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop: остатки уже вычитаны
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
