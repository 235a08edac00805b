package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - корневая структура конфигурации сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Submit    SubmitConfig    `mapstructure:"submit"`
	Sample    SampleConfig    `mapstructure:"sample"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // Пусто - /metrics не поднимается
}

// RemoteConfig - веб-приложение Apps Script. Пустой URL включает режим только с примером данных.
type RemoteConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryAttempts     uint          `mapstructure:"retry_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	SubmitContentType string        `mapstructure:"submit_content_type"`

	// Circuit Breaker
	CBMaxRequests  uint32        `mapstructure:"cb_max_requests"`
	CBInterval     time.Duration `mapstructure:"cb_interval"`
	CBTimeout      time.Duration `mapstructure:"cb_timeout"`
	CBFailureRatio float64       `mapstructure:"cb_failure_ratio"`
	CBMinRequests  uint32        `mapstructure:"cb_min_requests"`
}

func (r RemoteConfig) Configured() bool { return strings.TrimSpace(r.URL) != "" }

type DashboardConfig struct {
	Title    string `mapstructure:"title"`    // Принудительный заголовок после загрузки
	Timezone string `mapstructure:"timezone"` // Для отображения lastUpdated
}

// Location - зона отображения. Неизвестная зона не валит сервис, показываем в UTC.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SubmitConfig struct {
	Pacing time.Duration `mapstructure:"pacing"` // Пауза между записями пачки
}

type SampleConfig struct {
	Latency time.Duration `mapstructure:"latency"`
}

// DatabaseConfig описывает подключение к PostgreSQL (журнал отправок).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub сигнала обновления).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig - публичный RSA ключ для проверки JWT на приеме записей.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// path - явный путь к файлу (флаг --config), пустой - поиск по умолчанию.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// 2. ENV: REMOTE_URL перекроет remote.url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет - работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. PEM-ключ напрямую из ENV (Docker/K8s) или из файла
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %s", c.Remote.Timeout)
	}
	if c.Submit.Pacing < 0 {
		return fmt.Errorf("submit.pacing must not be negative, got %s", c.Submit.Pacing)
	}
	if c.Journal.BufferSize <= 0 || c.Journal.BatchSize <= 0 {
		return errors.New("journal.buffer_size and journal.batch_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute) // Пачка записей идет последовательно
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.retry_attempts", 3)
	v.SetDefault("remote.retry_delay", 300*time.Millisecond)
	v.SetDefault("remote.submit_content_type", "text/plain;charset=utf-8")
	v.SetDefault("remote.cb_max_requests", 1)
	v.SetDefault("remote.cb_interval", 60*time.Second)
	v.SetDefault("remote.cb_timeout", 30*time.Second)
	v.SetDefault("remote.cb_failure_ratio", 0.6)
	v.SetDefault("remote.cb_min_requests", 5)

	v.SetDefault("dashboard.title", "Indicadores Seven")
	v.SetDefault("dashboard.timezone", "America/Sao_Paulo")
	v.SetDefault("submit.pacing", 100*time.Millisecond)
	v.SetDefault("sample.latency", 200*time.Millisecond)

	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("journal.buffer_size", 1000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 1*time.Second)
}

func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
