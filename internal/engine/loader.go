package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/connectors"
)

var ErrLoadInProgress = errors.New("dashboard load already in progress")

// Сообщения для баннера источника данных
const (
	msgRemoteLoaded   = "Dados carregados do Google Sheets via Apps Script."
	msgNotConfigured  = "URL do Google Apps Script não fornecida. Exibindo dados de exemplo."
	msgSampleFallback = "Falha ao carregar do Google Sheets (%s). Exibindo dados de exemplo."
)

// LoadError - не удалось получить данные ни из таблицы, ни из примера.
type LoadError struct {
	Primary  error
	Fallback error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("primary: %v. fallback: %v", e.Primary, e.Fallback)
}

func (e *LoadError) Unwrap() []error { return []error{e.Primary, e.Fallback} }

// Loader - цепочка remote → sample с дедупликацией и принудительным заголовком.
// Одновременно выполняется не больше одной загрузки.
type Loader struct {
	remote  DashboardSource // nil - эндпоинт не настроен, сеть не трогаем
	sample  DashboardSource
	title   string
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	sem chan struct{} // Слот загрузки

	mu    sync.RWMutex
	state AppState
}

func NewLoader(remote, sample DashboardSource, title string, metrics *Metrics, logger *zap.Logger) *Loader {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Loader{
		remote:  remote,
		sample:  sample,
		title:   title,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "loader")),
		now:     time.Now,
		sem:     make(chan struct{}, 1),
		state:   AppState{Status: StatusIdle, Source: SourceNone},
	}
}

// State возвращает текущий снимок. Data разделяется между читателями и не меняется.
func (l *Loader) State() AppState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Load - обычная загрузка: статус проходит Loading → Loaded/Failed.
// Если загрузка уже идет, сразу возвращает ErrLoadInProgress.
func (l *Loader) Load(ctx context.Context) (AppState, error) {
	select {
	case l.sem <- struct{}{}:
	default:
		return l.State(), ErrLoadInProgress
	}
	defer func() { <-l.sem }()

	prev := l.State()
	l.commit(startLoading)

	res := l.run(ctx, "load")
	if ctx.Err() != nil {
		// Вызывающий ушел: прерванная загрузка не стирает показанные данные
		l.logger.Warn("dashboard load aborted, keeping previous state", zap.Error(ctx.Err()))
		st := l.commit(func(AppState) AppState { return prev })
		return st, ctx.Err()
	}
	st := l.commit(func(s AppState) AppState { return applyLoad(s, res, l.now()) })
	if res.err != nil {
		return st, res.err
	}
	return st, nil
}

// Refresh - тихая перезагрузка после отправки записей или по сигналу из Redis.
// Ждет освобождения слота, Status и SourceMessage не меняет, уже показанные данные не стирает.
func (l *Loader) Refresh(ctx context.Context) (AppState, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
	defer func() { <-l.sem }()

	res := l.run(ctx, "refresh")
	st := l.commit(func(s AppState) AppState { return applyRefresh(s, res, l.now()) })
	if res.err != nil {
		l.logger.Warn("silent refresh failed, keeping current data", zap.Error(res.err))
		return st, res.err
	}
	return st, nil
}

func (l *Loader) commit(transition func(AppState) AppState) AppState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = transition(l.state)
	return l.state
}

// run - один проход цепочки. Состояние не трогает.
func (l *Loader) run(ctx context.Context, mode string) loadResult {
	// 1. Основной источник
	var primaryErr error
	if l.remote != nil {
		data, err := l.remote.FetchDashboard(ctx)
		if err == nil {
			l.metrics.Loads.WithLabelValues(string(SourceRemote), "ok", mode).Inc()
			l.logger.Info("dashboard loaded from remote", zap.String("mode", mode), zap.Int("sectors", len(data.Sectors)))
			return loadResult{
				data:    normalize(data, l.title),
				source:  SourceRemote,
				message: msgRemoteLoaded,
			}
		}
		primaryErr = err
		l.logger.Warn("remote fetch failed, falling back to sample data", zap.String("mode", mode), zap.Error(err))
	} else {
		primaryErr = connectors.ErrRemoteNotConfigured
	}

	// 2. Запасной источник
	data, err := l.sample.FetchDashboard(ctx)
	if err != nil {
		l.metrics.Loads.WithLabelValues(string(SourceNone), "failed", mode).Inc()
		l.logger.Error("sample fallback failed", zap.String("mode", mode), zap.Error(err))
		return loadResult{err: &LoadError{Primary: primaryErr, Fallback: err}}
	}

	l.metrics.Loads.WithLabelValues(string(SourceSample), "ok", mode).Inc()
	res := loadResult{
		data:   normalize(data, l.title),
		source: SourceSample,
	}
	if errors.Is(primaryErr, connectors.ErrRemoteNotConfigured) {
		res.message = msgNotConfigured
	} else {
		res.message = fmt.Sprintf(msgSampleFallback, primaryErr)
		res.warning = res.message
	}
	return res
}
