package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Ingest   IngestConfig   `yaml:"ingest"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DSN returns the SQLite connection string. WAL keeps the read-mostly
// web process from blocking behind ingestion commits.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", d.Path)
}

type ScraperConfig struct {
	// Command and Args form the subprocess invocation; the account
	// handle and the max item count are appended as the final two
	// arguments.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Timeout time.Duration     `yaml:"timeout"`
	Env     map[string]string `yaml:"env"`
}

type IngestConfig struct {
	Platform           string        `yaml:"platform"`
	MaxItemsPerAccount int           `yaml:"max_items_per_account"`
	Interval           time.Duration `yaml:"interval"`
	RunTimeout         time.Duration `yaml:"run_timeout"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Password, when set, gates every /api route behind a single shared
	// secret. Empty disables the gate.
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "social_watch.db"
	}
	if c.Scraper.Command == "" {
		c.Scraper.Command = "x-scraper"
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = 2 * time.Minute
	}
	if c.Ingest.Platform == "" {
		c.Ingest.Platform = "x"
	}
	if c.Ingest.MaxItemsPerAccount == 0 {
		c.Ingest.MaxItemsPerAccount = 10
	}
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = 6 * time.Hour
	}
	if c.Ingest.RunTimeout == 0 {
		c.Ingest.RunTimeout = 30 * time.Minute
	}
	if c.RabbitMQ.URL != "" {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "social_watch"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "posts"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "dashboard_posts"
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
