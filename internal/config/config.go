package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"taskBot/internal/models/task"
	"taskBot/internal/worker"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
	RepositoryInMemory = "inmemory"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Tasks      TasksConfig      `yaml:"tasks"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	Host           string        `yaml:"host"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPM   int           `yaml:"rate_limit_rpm"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres", "sqlite" или "inmemory"
}

// GatewayConfig - REST-мост к платформе чата
type GatewayConfig struct {
	URL                  string        `yaml:"url"`
	Token                string        `yaml:"token"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
	Concurrency  int           `yaml:"concurrency"`
	ActiveFrom   string        `yaml:"active_from"`
	ActiveTo     string        `yaml:"active_to"`
	Timezone     string        `yaml:"timezone"`
}

type TasksConfig struct {
	CaptainRole          string `yaml:"captain_role"`
	DefaultReminderHours int    `yaml:"default_reminder_hours"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			RequestTimeout: 30 * time.Second,
			RateLimitRPM:   100,
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		SQLite:     SQLiteConfig{Path: "data/taskbot.db"},
		Logging:    LoggingConfig{Development: false, Level: "info"},
		Repository: RepositoryConfig{Type: RepositoryInMemory},
		Gateway: GatewayConfig{
			URL:                  "http://localhost:8081",
			Timeout:              10 * time.Second,
			MaxRetries:           3,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     5 * time.Second,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 20 * time.Minute,
			SendTimeout:  15 * time.Second,
			Concurrency:  4,
			ActiveFrom:   "09:00",
			ActiveTo:     "21:00",
			Timezone:     "Local",
		},
		Tasks: TasksConfig{
			CaptainRole:          "SE",
			DefaultReminderHours: 26,
		},
	}
}

// Load читает yaml поверх значений по умолчанию, затем применяет переменные окружения.
// Отсутствующий файл не ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envBindings = map[string]string{
	"gateway.token":   "TASKBOT_GATEWAY_TOKEN",
	"gateway.url":     "TASKBOT_GATEWAY_URL",
	"database.url":    "TASKBOT_DATABASE_URL",
	"repository.type": "TASKBOT_REPOSITORY_TYPE",
	"server.port":     "TASKBOT_SERVER_PORT",
	"sqlite.path":     "TASKBOT_SQLITE_PATH",
	"logging.level":   "TASKBOT_LOG_LEVEL",
}

// секреты не храним в config.yml
func applyEnv(cfg *Config) error {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("привязка %s: %w", env, err)
		}
	}

	targets := map[string]*string{
		"gateway.token":   &cfg.Gateway.Token,
		"gateway.url":     &cfg.Gateway.URL,
		"database.url":    &cfg.Database.URL,
		"repository.type": &cfg.Repository.Type,
		"server.port":     &cfg.Server.Port,
		"sqlite.path":     &cfg.SQLite.Path,
		"logging.level":   &cfg.Logging.Level,
	}
	for key, dst := range targets {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для postgres")
		}
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path обязателен для sqlite")
		}
	case RepositoryInMemory:
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", c.Repository.Type)
	}

	if c.Repository.Type != RepositoryInMemory && c.Gateway.Token == "" {
		return errors.New("gateway.token не задан (TASKBOT_GATEWAY_TOKEN)")
	}
	if c.Gateway.URL == "" {
		return errors.New("gateway.url не задан")
	}
	if c.Scheduler.PollInterval <= 0 {
		return errors.New("scheduler.poll_interval должен быть положительным")
	}
	if _, err := c.Scheduler.Hours(); err != nil {
		return err
	}
	if !task.ValidDueIntervalHours(c.Tasks.DefaultReminderHours) {
		return fmt.Errorf("tasks.default_reminder_hours должен быть от 1 до %d", task.MaxDueIntervalHours)
	}
	if c.Tasks.CaptainRole == "" {
		return errors.New("tasks.captain_role не задан")
	}
	return nil
}

// Hours - окно активности напоминаний
func (s SchedulerConfig) Hours() (worker.ActiveHours, error) {
	hours, err := worker.ParseActiveHours(s.ActiveFrom, s.ActiveTo, s.Timezone)
	if err != nil {
		return worker.ActiveHours{}, fmt.Errorf("scheduler: %w", err)
	}
	return hours, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
