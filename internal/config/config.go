package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/studio-api/internal/model"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Business  BusinessConfig  `mapstructure:"business"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Push      PushConfig      `mapstructure:"push"`
	Email     EmailConfig     `mapstructure:"email"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `mapstructure:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME" default:"studio"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url" envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	MaxRetries   int    `mapstructure:"maxRetries" envconfig:"REDIS_MAX_RETRIES" default:"3"`
	PoolSize     int    `mapstructure:"poolSize" envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int    `mapstructure:"minIdleConns" envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
}

// BusinessConfig carries the fixed civil timezone every wall-clock
// computation uses, and the closed worker set.
type BusinessConfig struct {
	Timezone string         `mapstructure:"timezone" envconfig:"BUSINESS_TIMEZONE" default:"UTC"`
	Workers  []WorkerConfig `mapstructure:"workers" envconfig:"-"`
}

type WorkerConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type ReminderConfig struct {
	ToleranceMinutes     int `mapstructure:"toleranceMinutes" envconfig:"REMINDER_TOLERANCE_MINUTES" default:"7"`
	HorizonMinutes       int `mapstructure:"horizonMinutes" envconfig:"REMINDER_HORIZON_MINUTES" default:"120"`
	SweepIntervalSeconds int `mapstructure:"sweepIntervalSeconds" envconfig:"REMINDER_SWEEP_INTERVAL_SECONDS" default:"300"`
}

func (c ReminderConfig) Tolerance() time.Duration {
	return time.Duration(c.ToleranceMinutes) * time.Minute
}

func (c ReminderConfig) Horizon() time.Duration {
	return time.Duration(c.HorizonMinutes) * time.Minute
}

func (c ReminderConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

type SchedulerConfig struct {
	BaseURL         string `mapstructure:"baseURL" envconfig:"SCHEDULER_BASE_URL"`
	CallbackBaseURL string `mapstructure:"callbackBaseURL" envconfig:"SCHEDULER_CALLBACK_BASE_URL"`
	SigningSecret   string `mapstructure:"signingSecret" envconfig:"SCHEDULER_SIGNING_SECRET"`
	TimeoutSeconds  int    `mapstructure:"timeoutSeconds" envconfig:"SCHEDULER_TIMEOUT_SECONDS" default:"5"`
}

type PushConfig struct {
	GatewayURL     string `mapstructure:"gatewayURL" envconfig:"PUSH_GATEWAY_URL"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds" envconfig:"PUSH_TIMEOUT_SECONDS" default:"5"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"EMAIL_ENABLED" default:"false"`
	Host     string `mapstructure:"host" envconfig:"EMAIL_HOST"`
	Port     int    `mapstructure:"port" envconfig:"EMAIL_PORT" default:"587"`
	Username string `mapstructure:"username" envconfig:"EMAIL_USERNAME"`
	Password string `mapstructure:"password" envconfig:"EMAIL_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"EMAIL_FROM"`
	OwnerTo  string `mapstructure:"ownerTo" envconfig:"EMAIL_OWNER_TO"`
}

type OutboxConfig struct {
	BatchSize           int `mapstructure:"batchSize" envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollIntervalSeconds int `mapstructure:"pollIntervalSeconds" envconfig:"OUTBOX_POLL_INTERVAL_SECONDS" default:"5"`
	RetryAttempts       int `mapstructure:"retryAttempts" envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelaySeconds   int `mapstructure:"retryDelaySeconds" envconfig:"OUTBOX_RETRY_DELAY_SECONDS" default:"5"`
}

// LoadConfig reads config.yaml (with env overrides) for the API binary.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// LoadFromEnv builds config purely from the environment. Used by the
// sweeper binary, which runs containerized without a config file. The
// worker list arrives as WORKERS="id:name,id:name".
func LoadFromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	workers, err := parseWorkersEnv()
	if err != nil {
		return nil, err
	}
	config.Business.Workers = workers

	applyDefaults(&config)
	return &config, nil
}

func parseWorkersEnv() ([]WorkerConfig, error) {
	raw := os.Getenv("WORKERS")
	if raw == "" {
		return nil, nil
	}
	var workers []WorkerConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, found := strings.Cut(entry, ":")
		if !found || id == "" {
			return nil, fmt.Errorf("invalid WORKERS entry %q, want id:name", entry)
		}
		workers = append(workers, WorkerConfig{ID: id, Name: name})
	}
	return workers, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = 30
	}
	if c.Reminder.ToleranceMinutes == 0 {
		c.Reminder.ToleranceMinutes = 7
	}
	if c.Reminder.HorizonMinutes == 0 {
		c.Reminder.HorizonMinutes = 120
	}
	if c.Reminder.SweepIntervalSeconds == 0 {
		c.Reminder.SweepIntervalSeconds = 300
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.PollIntervalSeconds == 0 {
		c.Outbox.PollIntervalSeconds = 5
	}
	if c.Outbox.RetryAttempts == 0 {
		c.Outbox.RetryAttempts = 3
	}
	if c.Outbox.RetryDelaySeconds == 0 {
		c.Outbox.RetryDelaySeconds = 5
	}
	if c.Business.Timezone == "" {
		c.Business.Timezone = "UTC"
	}
}

// Location resolves the business timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", c.Business.Timezone, err)
	}
	return loc, nil
}

// Registry builds the closed worker set from config.
func (c *Config) Registry() *model.WorkerRegistry {
	workers := make([]model.Worker, 0, len(c.Business.Workers))
	for _, w := range c.Business.Workers {
		workers = append(workers, model.Worker{ID: model.WorkerID(w.ID), Name: w.Name})
	}
	return model.NewWorkerRegistry(workers)
}
