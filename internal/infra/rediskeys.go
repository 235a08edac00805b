package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "kpidash"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDashboardRefresh - после пачки записей все инстансы тихо перечитывают таблицу.
	RedisChanDashboardRefresh = RedisNamespace + ":dashboard:refresh"
)

// RefreshSignal - payload сообщения в RedisChanDashboardRefresh
const RefreshSignal = "refresh"
