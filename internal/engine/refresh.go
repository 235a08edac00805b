package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

// Refresher - то, что умеет тихо перечитать таблицу (Loader).
type Refresher interface {
	Refresh(ctx context.Context) (AppState, error)
}

// RefreshPublisher рассылает сигнал обновления всем инстансам.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context) error
}

// RedisRefreshBus - сигнал обновления дашборда через Redis Pub/Sub.
type RedisRefreshBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisRefreshBus(rdb *redis.Client, logger *zap.Logger) *RedisRefreshBus {
	return &RedisRefreshBus{rdb: rdb, logger: logger.With(zap.String("mod", "refresh-bus"))}
}

func (b *RedisRefreshBus) PublishRefresh(ctx context.Context) error {
	if err := b.rdb.Publish(ctx, infra.RedisChanDashboardRefresh, infra.RefreshSignal).Err(); err != nil {
		return fmt.Errorf("publish refresh signal: %w", err)
	}
	return nil
}

// Listen блокируется до отмены ctx: каждый сигнал запускает тихую перезагрузку.
func (b *RedisRefreshBus) Listen(ctx context.Context, r Refresher) {
	refresh := func(ctx context.Context) error {
		_, err := r.Refresh(ctx)
		return err
	}

	ListenResilient(ctx, b.rdb, b.logger, infra.RedisChanDashboardRefresh,
		refresh,
		func(ctx context.Context, payload string) {
			if payload != infra.RefreshSignal {
				b.logger.Error("invalid signal format", zap.String("payload", payload))
				return
			}
			if err := refresh(ctx); err != nil {
				b.logger.Warn("refresh on signal failed", zap.Error(err))
			}
		},
	)
}
