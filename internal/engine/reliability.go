package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/connectors"
	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

// DashboardSource - все, что умеет отдать снимок дашборда (Apps Script, пример данных).
type DashboardSource interface {
	FetchDashboard(ctx context.Context) (*domain.DashboardData, error)
}

// RecordSink принимает одну запись показателя.
type RecordSink interface {
	SubmitRecord(ctx context.Context, entry domain.FormDataEntry) (*domain.SubmissionResult, error)
}

type RemoteClient interface {
	DashboardSource
	RecordSink
}

type ReliabilityOptions struct {
	Timeout       time.Duration // На одну попытку
	Attempts      uint          // Только для GET
	Delay         time.Duration // База экспоненциального бэкоффа
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailRatio   float64
	CBMinRequests uint32
}

// ReliabilityWrapper - таймаут, ретраи и предохранитель вокруг Apps Script.
type ReliabilityWrapper struct {
	next    RemoteClient
	cb      *gobreaker.CircuitBreaker
	opts    ReliabilityOptions
	metrics *Metrics
	logger  *zap.Logger
}

func NewReliabilityWrapper(next RemoteClient, opts ReliabilityOptions, metrics *Metrics, logger *zap.Logger) *ReliabilityWrapper {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	w := &ReliabilityWrapper{
		next:    next,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "reliability")),
	}

	// Настройка предохранителя
	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "apps-script",
		MaxRequests: opts.CBMaxRequests,
		Interval:    opts.CBInterval,
		Timeout:     opts.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.CBMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.CBFailRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
		},
		// Отказы по содержанию (битый формат, дубликат, отказ таблицы) не говорят о здоровье эндпоинта
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransportFailure(err)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues("apps-script").Set(0)

	return w
}

func (w *ReliabilityWrapper) FetchDashboard(ctx context.Context) (*domain.DashboardData, error) {
	start := time.Now()
	var (
		data    *domain.DashboardData
		attempt uint
	)

	// 1. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.opts.Attempts),
			retry.Delay(w.opts.Delay),
			retry.LastErrorOnly(true),
			// Повторяем только то, что может пройти со второго раза
			retry.RetryIf(isRetriable),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Эндпоинт сам сказал, сколько ждать (Retry-After)
				var svcErr *connectors.RemoteServiceError
				if errors.As(err, &svcErr) && svcErr.RetryAfter > 0 {
					return svcErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		// 2. Каждая попытка со своим таймаутом
		retryErr := r.Do(func() error {
			attempt++
			tCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
			defer cancel()

			var callErr error
			data, callErr = w.next.FetchDashboard(tCtx)
			if callErr != nil && attempt < w.opts.Attempts && isRetriable(callErr) {
				w.logger.Warn("dashboard fetch failed, retrying", zap.Uint("attempt", attempt), zap.Error(callErr))
			}
			return callErr
		})
		return nil, retryErr
	})

	w.observe("fetch", start, err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SubmitRecord без ретраев: POST в таблицу не идемпотентен.
func (w *ReliabilityWrapper) SubmitRecord(ctx context.Context, entry domain.FormDataEntry) (*domain.SubmissionResult, error) {
	start := time.Now()
	res, err := w.cb.Execute(func() (interface{}, error) {
		tCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
		return w.next.SubmitRecord(tCtx, entry)
	})

	w.observe("submit", start, err)
	if err != nil {
		return nil, err
	}
	return res.(*domain.SubmissionResult), nil
}

func (w *ReliabilityWrapper) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "circuit_open"
	case isTransportFailure(err):
		status = "unavailable"
	default:
		status = "rejected"
	}
	w.metrics.RemoteDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// isRetriable: сеть, таймаут попытки, 429 и 5xx. Формат и отказы по содержанию не повторяем.
func isRetriable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var svcErr *connectors.RemoteServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isTransportFailure - ошибка, которая должна считаться против предохранителя
func isTransportFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var svcErr *connectors.RemoteServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Temporary()
	}
	var subErr *connectors.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.StatusCode == 0 || subErr.StatusCode == http.StatusTooManyRequests || subErr.StatusCode >= 500
	}
	return false
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}
