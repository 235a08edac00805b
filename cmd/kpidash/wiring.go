package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/audit"
	"github.com/xela07ax/kpi-dashboard/internal/connectors"
	"github.com/xela07ax/kpi-dashboard/internal/console/handler"
	"github.com/xela07ax/kpi-dashboard/internal/console/server"
	"github.com/xela07ax/kpi-dashboard/internal/console/service"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
	"github.com/xela07ax/kpi-dashboard/internal/infra/auth"
	"github.com/xela07ax/kpi-dashboard/internal/repository/postgres"
)

const startupTimeout = 5 * time.Second

// core - цепочка загрузки и отправки, общая для serve и snapshot
type core struct {
	metrics *engine.Metrics
	sample  *connectors.SampleConnector
	remote  *engine.ReliabilityWrapper // nil - эндпоинт не настроен
	loader  *engine.Loader
}

func newCore(cfg *infra.Config, reg prometheus.Registerer, logger *zap.Logger) *core {
	metrics := engine.NewMetrics(reg)
	sample := connectors.NewSampleConnector(cfg.Sample.Latency)

	c := &core{metrics: metrics, sample: sample}

	// Пустой URL: сеть не трогаем вообще, работаем на примере
	var remote engine.DashboardSource
	if cfg.Remote.Configured() {
		client := connectors.NewAppsScriptClient(cfg.Remote.URL, nil, logger,
			connectors.WithSubmitContentType(cfg.Remote.SubmitContentType))
		c.remote = engine.NewReliabilityWrapper(client, engine.ReliabilityOptions{
			Timeout:       cfg.Remote.Timeout,
			Attempts:      cfg.Remote.RetryAttempts,
			Delay:         cfg.Remote.RetryDelay,
			CBMaxRequests: cfg.Remote.CBMaxRequests,
			CBInterval:    cfg.Remote.CBInterval,
			CBTimeout:     cfg.Remote.CBTimeout,
			CBFailRatio:   cfg.Remote.CBFailureRatio,
			CBMinRequests: cfg.Remote.CBMinRequests,
		}, metrics, logger)
		remote = c.remote
	} else {
		logger.Info("remote.url is empty, running on sample data only")
	}

	c.loader = engine.NewLoader(remote, sample, cfg.Dashboard.Title, metrics, logger)
	return c
}

// app - все зависимости HTTP-сервиса
type app struct {
	cfg      *infra.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	core     *core

	journal *audit.Journal
	repo    *postgres.SubmissionRepo // nil - журнал только в лог
	rdb     *redis.Client            // nil - Redis не настроен
	bus     *engine.RedisRefreshBus
	handler *server.ConsoleServer
}

func newApp(ctx context.Context, cfg *infra.Config, logger *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{cfg: cfg, logger: logger, registry: reg}
	a.core = newCore(cfg, reg, logger)

	// 1. Хранилище журнала: Postgres или zap
	var storage audit.Storage = audit.NewLogStorage(logger)
	var logs service.AuditLogProvider
	if cfg.Database.URL != "" {
		repo, err := postgres.NewSubmissionRepo(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("database unreachable: %w", err)
		}
		if err := repo.EnsureSchema(pingCtx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		a.repo = repo
		storage = repo
		logs = repo
	}

	a.journal = audit.NewJournal(storage, audit.Options{
		BufferSize:    cfg.Journal.BufferSize,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferFill:    a.core.metrics.JournalBufferFill,
		Dropped:       a.core.metrics.JournalDropped,
	}, logger)

	// 2. Redis: сигнал обновления между инстансами
	var publisher engine.RefreshPublisher
	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			// Слушатель переподключится сам, публикация откатится на локальный refresh
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.bus = engine.NewRedisRefreshBus(a.rdb, logger)
		publisher = a.bus
	}

	// 3. Аутентификация на запись
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("auth public key: %w", err)
		}
		validator = auth.NewBaseValidator(pub)
	} else {
		logger.Warn("auth public key not configured, POST /api/v1/records is open")
	}

	// 4. Сервисы и обработчики
	var sink engine.RecordSink
	if a.core.remote != nil {
		sink = a.core.remote
	}
	submitter := engine.NewBatchSubmitter(sink, cfg.Submit.Pacing, a.journal, a.core.metrics, logger)

	dashSvc := service.NewDashboardService(a.core.loader, service.NewViewBuilder(cfg.Dashboard.Location()), logger)
	recordSvc := service.NewRecordService(submitter, publisher, a.core.loader, logger)

	a.handler = server.NewConsoleServer(logger, validator,
		handler.NewDashboardHandler(dashSvc),
		handler.NewRecordHandler(recordSvc, service.NewFormService(a.core.sample)),
		handler.NewAuditHandler(service.NewAuditService(logs)),
	)
	return a, nil
}

// Close освобождает внешние ресурсы. Журнал к этому моменту уже остановлен.
func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
}
