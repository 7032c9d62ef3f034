package config

import (
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // часовые пояса без системной базы zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment        string        `env:"ENV" envDefault:"development"`
	DBDSN              string        `env:"DB_DSN"` // пусто = только память
	Migrate            bool          `env:"DB_MIGRATE" envDefault:"true"`
	TelegramToken      string        `env:"TELEGRAM_TOKEN"`
	Timezone           string        `env:"TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`
	CompletionInterval time.Duration `env:"COMPLETION_INTERVAL" envDefault:"5m"`
	NotifyQueueSize    int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"100"`
}

// Load читает .env (если он есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return Parse()
}

// Parse читает конфигурацию только из переменных окружения
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.CompletionInterval <= 0 {
		return nil, fmt.Errorf("COMPLETION_INTERVAL must be positive, got %s", cfg.CompletionInterval)
	}
	if cfg.NotifyQueueSize < 1 {
		return nil, fmt.Errorf("NOTIFY_QUEUE_SIZE must be at least 1, got %d", cfg.NotifyQueueSize)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location часовой пояс, в котором заданы даты и время занятий
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UsesDatabase включено ли зеркалирование в PostgreSQL
func (c *Config) UsesDatabase() bool {
	return c.DBDSN != ""
}
