package todo

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	xerrors "HTMX-Todo/internal/errors"
)

// RedisStoreConfig 描述 Redis 存储的连接参数。
type RedisStoreConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisStore 使用哈希保存描述、列表保存插入顺序。
type RedisStore struct {
	client   *redis.Client
	itemsKey string
	orderKey string
}

var (
	insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1`)

	updateScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1`)

	deleteScript = redis.NewScript(`
local removed = redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('LREM', KEYS[2], 0, ARGV[1])
return removed`)
)

// NewRedisStore 创建 Redis 存储并确认连接可用。
func NewRedisStore(ctx context.Context, cfg RedisStoreConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 Redis 失败")
	}
	return newRedisStore(client, cfg.Prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "todo"
	}
	return &RedisStore{
		client:   client,
		itemsKey: prefix + ":items",
		orderKey: prefix + ":order",
	}
}

// Insert 实现 Store 接口。
func (s *RedisStore) Insert(ctx context.Context, todo Todo) error {
	created, err := insertScript.Run(ctx, s.client, s.keys(), todo.ID.String(), todo.Description).Int64()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 写入待办失败")
	}
	if created == 0 {
		return ErrTodoConflict
	}
	return nil
}

// Update 实现 Store 接口。
func (s *RedisStore) Update(ctx context.Context, todo Todo) (int64, error) {
	affected, err := updateScript.Run(ctx, s.client, s.keys(), todo.ID.String(), todo.Description).Int64()
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 更新待办失败")
	}
	return affected, nil
}

// List 按插入顺序返回全部记录。
func (s *RedisStore) List(ctx context.Context) ([]Todo, error) {
	ids, err := s.client.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 查询顺序失败")
	}
	todos := make([]Todo, 0, len(ids))
	if len(ids) == 0 {
		return todos, nil
	}
	values, err := s.client.HMGet(ctx, s.itemsKey, ids...).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 查询待办失败")
	}
	for i, value := range values {
		description, ok := value.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(ids[i])
		if err != nil {
			continue
		}
		todos = append(todos, Todo{ID: id, Description: description})
	}
	return todos, nil
}

// Find 实现 Store 接口。
func (s *RedisStore) Find(ctx context.Context, id uuid.UUID) (Todo, error) {
	description, err := s.client.HGet(ctx, s.itemsKey, id.String()).Result()
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return Todo{}, ErrTodoNotFound
		}
		return Todo{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 查询待办失败")
	}
	return Todo{ID: id, Description: description}, nil
}

// Delete 实现 Store 接口。
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	removed, err := deleteScript.Run(ctx, s.client, s.keys(), id.String()).Int64()
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeStorageFailure, err, "Redis 删除待办失败")
	}
	return removed, nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) keys() []string {
	return []string{s.itemsKey, s.orderKey}
}

var _ Store = (*RedisStore)(nil)
