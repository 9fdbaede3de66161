package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 支持的错误处理策略。
const (
	ErrorPolicyQuiet  = "quiet"
	ErrorPolicyStrict = "strict"
)

// Config 描述了待办服务在启动阶段需要加载的全部配置。
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// ServerConfig 控制 HTTP 服务的监听地址、模板与静态资源目录。
type ServerConfig struct {
	Address                string `json:"address" yaml:"address"`
	TemplatesDir           string `json:"templates_dir" yaml:"templates_dir"`
	AssetsDir              string `json:"assets_dir" yaml:"assets_dir"`
	ErrorPolicy            string `json:"error_policy" yaml:"error_policy"`
	DisableMetrics         bool   `json:"disable_metrics" yaml:"disable_metrics"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// StorageConfig 描述待办存储后端。driver 取值 memory、mysql、sqlite3、postgres 或 redis。
type StorageConfig struct {
	Driver                 string      `json:"driver" yaml:"driver"`
	DSN                    string      `json:"dsn" yaml:"dsn"`
	MaxOpenConns           int         `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int         `json:"max_idle_conns" yaml:"max_idle_conns"`
	AcquireTimeoutSeconds  int         `json:"acquire_timeout_seconds" yaml:"acquire_timeout_seconds"`
	ConnMaxLifetimeSeconds int         `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
	SkipMigrations         bool        `json:"skip_migrations" yaml:"skip_migrations"`
	Redis                  RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig 是 Redis 存储的连接信息。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// EventsConfig 控制变更事件队列。driver 取值 none、memory、redis 或 rabbitmq。
type EventsConfig struct {
	Driver     string           `json:"driver" yaml:"driver"`
	Workers    int              `json:"workers" yaml:"workers"`
	BufferSize int              `json:"buffer_size" yaml:"buffer_size"`
	Redis      RedisQueueConfig `json:"redis" yaml:"redis"`
	RabbitMQ   RabbitMQConfig   `json:"rabbitmq" yaml:"rabbitmq"`
}

// RedisQueueConfig 是 Redis 事件队列的连接信息。
type RedisQueueConfig struct {
	Address          string `json:"address" yaml:"address"`
	Password         string `json:"password" yaml:"password"`
	DB               int    `json:"db" yaml:"db"`
	Queue            string `json:"queue" yaml:"queue"`
	BlockWaitSeconds int    `json:"block_wait_seconds" yaml:"block_wait_seconds"`
}

// RabbitMQConfig 是 RabbitMQ 事件队列的连接信息。
type RabbitMQConfig struct {
	URL        string `json:"url" yaml:"url"`
	Queue      string `json:"queue" yaml:"queue"`
	Prefetch   int    `json:"prefetch" yaml:"prefetch"`
	Durable    bool   `json:"durable" yaml:"durable"`
	AutoDelete bool   `json:"auto_delete" yaml:"auto_delete"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level   string      `json:"level" yaml:"level"`
	Format  string      `json:"format" yaml:"format"`
	Outputs []string    `json:"outputs" yaml:"outputs"`
	Audit   AuditConfig `json:"audit" yaml:"audit"`
}

// AuditConfig 控制审计日志文件。
type AuditConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// Default 返回不依赖配置文件的默认配置，相对路径基于当前工作目录。
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults(".")
	return cfg
}

// Load 解析指定路径的配置文件，按扩展名选择 JSON 或 YAML。
// 路径为空时返回 Default()。
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
		}
	default:
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 使用环境变量覆盖少量常用字段，便于容器部署。
func (c *Config) applyEnv() {
	if v := os.Getenv("TODO_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("TODO_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TODO_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:8080"
	}
	c.Server.TemplatesDir = resolvePath(baseDir, c.Server.TemplatesDir, "templates")
	c.Server.AssetsDir = resolvePath(baseDir, c.Server.AssetsDir, "assets")
	c.Server.ErrorPolicy = strings.ToLower(strings.TrimSpace(c.Server.ErrorPolicy))
	if c.Server.ErrorPolicy == "" {
		c.Server.ErrorPolicy = ErrorPolicyQuiet
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxOpenConns <= 0 {
		c.Storage.MaxOpenConns = 5
	}
	if c.Storage.MaxIdleConns <= 0 {
		c.Storage.MaxIdleConns = 2
	}
	if c.Storage.AcquireTimeoutSeconds <= 0 {
		c.Storage.AcquireTimeoutSeconds = 3
	}
	if c.Storage.ConnMaxLifetimeSeconds <= 0 {
		c.Storage.ConnMaxLifetimeSeconds = 1800
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "todo"
	}

	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Workers <= 0 {
		c.Events.Workers = 1
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 128
	}
	if c.Events.Redis.Queue == "" {
		c.Events.Redis.Queue = "todo:events"
	}
	if c.Events.Redis.BlockWaitSeconds <= 0 {
		c.Events.Redis.BlockWaitSeconds = 5
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "todo.events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path != "" && !filepath.IsAbs(c.Log.Audit.Path) {
		c.Log.Audit.Path = filepath.Join(baseDir, c.Log.Audit.Path)
	}
}

// Validate 检查取值是否在支持范围内。
func (c *Config) Validate() error {
	var errs []error
	switch c.Server.ErrorPolicy {
	case ErrorPolicyQuiet, ErrorPolicyStrict:
	default:
		errs = append(errs, fmt.Errorf("未知的 error_policy: %q", c.Server.ErrorPolicy))
	}
	switch c.Storage.Driver {
	case "memory", "redis":
	case "mysql", "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("存储驱动 %s 需要配置 dsn", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的存储驱动: %q", c.Storage.Driver))
	}
	if c.Storage.Driver == "redis" && c.Storage.Redis.Address == "" {
		errs = append(errs, errors.New("redis 存储需要配置 storage.redis.address"))
	}
	switch c.Events.Driver {
	case "none", "memory":
	case "redis":
		if c.Events.Redis.Address == "" {
			errs = append(errs, errors.New("redis 事件队列需要配置 events.redis.address"))
		}
	case "rabbitmq":
		if c.Events.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("rabbitmq 事件队列需要配置 events.rabbitmq.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的事件驱动: %q", c.Events.Driver))
	}
	return errors.Join(errs...)
}

// AcquireTimeout 返回连接池获取超时。
func (s StorageConfig) AcquireTimeout() time.Duration {
	return time.Duration(s.AcquireTimeoutSeconds) * time.Second
}

// ConnMaxLifetime 返回连接最大存活时间。
func (s StorageConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(s.ConnMaxLifetimeSeconds) * time.Second
}

// IsSQL 判断是否使用关系型数据库。
func (s StorageConfig) IsSQL() bool {
	switch s.Driver {
	case "memory", "redis":
		return false
	default:
		return true
	}
}

// ShutdownTimeout 返回优雅退出的最长等待时间。
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

func resolvePath(baseDir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}
