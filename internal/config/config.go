package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config - глобальная конфигурация бота
type Config struct {
	Env string // "local", "prod"

	// Telegram
	TelegramToken string
	AdminID       int64
	NewsChannelID int64 // канал, куда постятся новости

	// Tiingo
	TiingoToken   string
	HTTPTimeout   time.Duration
	StreamEnabled bool // websocket fast-path для алертов

	// Фильтры новостного фида. Пустой список тикеров = без фильтра.
	NewsTickers []string
	NewsTags    []string

	// Интервалы циклов
	PollInterval   time.Duration // внешний интервал обоих циклов
	AlertCheckGap  time.Duration // пауза между тикерами внутри прохода
	NewsSendGap    time.Duration // пауза между новостями внутри прохода
	NewsGraceBack  time.Duration // стартовый отступ watermark в прошлое
	NewsFetchLimit int

	// Postgres (реестр пользователей + история алертов)
	Database DatabaseConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Широкие теги по умолчанию: металлы, облигации, акции США, Азия, крипта
var defaultNewsTags = []string{
	"minerals", "metals", "gold", "silver",
	"bonds", "treasury", "interest rates",
	"US", "equity", "stocks",
	"Japan", "South Korea", "emerging markets",
	"crypto", "cryptocurrency", "bitcoin",
}

// LoadConfig - загружает настройки из ENV (.env подхватывается autoload в main)
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "local"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TiingoToken:    os.Getenv("TIINGO_API_KEY"),
		HTTPTimeout:    getDuration("HTTP_TIMEOUT", 10*time.Second),
		StreamEnabled:  getBool("TIINGO_STREAM_ENABLED", true),
		NewsTickers:    getList("NEWS_TICKERS", nil),
		NewsTags:       getList("NEWS_TAGS", defaultNewsTags),
		PollInterval:   getDuration("POLL_INTERVAL", 60*time.Second),
		AlertCheckGap:  getDuration("ALERT_CHECK_GAP", 200*time.Millisecond),
		NewsSendGap:    getDuration("NEWS_SEND_GAP", 500*time.Millisecond),
		NewsGraceBack:  getDuration("NEWS_GRACE_BACK", time.Hour),
		NewsFetchLimit: getInt("NEWS_FETCH_LIMIT", 50),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "trustmebro"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TiingoToken == "" {
		return nil, fmt.Errorf("TIINGO_API_KEY is required")
	}

	var err error
	if cfg.AdminID, err = getInt64("TELEGRAM_ADMIN_ID"); err != nil {
		return nil, err
	}
	if cfg.NewsChannelID, err = getInt64("NEWS_CHANNEL_ID"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// --- Helpers ---

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
