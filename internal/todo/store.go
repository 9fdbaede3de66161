package todo

import (
	"context"

	"github.com/google/uuid"
)

// Store 抽象了待办数据的持久化接口。
//
// Update 与 Delete 返回受影响的行数：目标不存在时返回 0 且不报错，
// 由调用方决定如何处理。
type Store interface {
	Insert(ctx context.Context, todo Todo) error
	Update(ctx context.Context, todo Todo) (int64, error)
	List(ctx context.Context) ([]Todo, error)
	Find(ctx context.Context, id uuid.UUID) (Todo, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	Close() error
}
