package cli

import (
	"context"
	"fmt"
	"time"

	"HTMX-Todo/internal/config"
	"HTMX-Todo/internal/event"
	"HTMX-Todo/internal/storage/sqldb"
	"HTMX-Todo/internal/todo"
)

// queueOpener 在测试中可被替换。
var queueOpener = openQueue

// openStore 按配置创建待办存储。SQL 存储在启动时连接失败会直接返回错误。
func openStore(ctx context.Context, cfg config.StorageConfig) (todo.Store, error) {
	switch cfg.Driver {
	case "memory":
		return todo.NewMemoryStore(), nil
	case "redis":
		return todo.NewRedisStore(ctx, todo.RedisStoreConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	default:
		db, err := sqldb.Open(ctx, sqlConfig(cfg))
		if err != nil {
			return nil, err
		}
		if !cfg.SkipMigrations {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("执行数据库迁移失败: %w", err)
			}
		}
		return todo.NewSQLStore(db), nil
	}
}

func sqlConfig(cfg config.StorageConfig) sqldb.Config {
	return sqldb.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
		AcquireTimeout:  cfg.AcquireTimeout(),
	}
}

// openQueue 按配置创建事件队列，driver 为 none 时返回 nil。
func openQueue(ctx context.Context, cfg config.EventsConfig) (event.Queue, error) {
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory":
		return event.NewMemoryQueue(cfg.BufferSize), nil
	case "redis":
		return event.NewRedisQueue(ctx, event.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Queue:     cfg.Redis.Queue,
			BlockWait: time.Duration(cfg.Redis.BlockWaitSeconds) * time.Second,
		})
	case "rabbitmq":
		return event.NewRabbitMQQueue(event.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的事件驱动: %q", cfg.Driver)
	}
}
