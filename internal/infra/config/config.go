package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Источники push-событий.
const (
	PushSourceWebsocket = "websocket"
	PushSourceRedis     = "redis"
)

// AppConfig описывает конфигурацию клиента синхронизации.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	// UIToken пустой токен отключает проверку локального интерфейса.
	UIToken string `envconfig:"UI_TOKEN"`

	API struct {
		BaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:3000"`
		// Timeout 0 означает отсутствие таймаута на отдельный запрос.
		Timeout time.Duration `envconfig:"API_TIMEOUT" default:"0s"`
	} `envconfig:""`

	Push struct {
		Source      string        `envconfig:"PUSH_SOURCE" default:"websocket"`
		URL         string        `envconfig:"PUSH_URL" default:"ws://localhost:3000/ws"`
		MaxAttempts int           `envconfig:"PUSH_MAX_ATTEMPTS" default:"5"`
		Backoff     time.Duration `envconfig:"PUSH_BACKOFF" default:"1s"`
		RedisPrefix string        `envconfig:"PUSH_REDIS_PREFIX" default:"push"`
		// PingInterval проверка соединения с Redis в тишине.
		PingInterval time.Duration `envconfig:"PUSH_PING_INTERVAL" default:"15s"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	Sync struct {
		Interval        time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
		MessagePageSize int           `envconfig:"MESSAGE_PAGE_SIZE" default:"50"`
	} `envconfig:""`

	// Session учётные данные для входа при старте. Без них демон ждёт POST /api/v1/login.
	Session struct {
		Username string `envconfig:"SYNC_USERNAME"`
		Password string `envconfig:"SYNC_PASSWORD"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
