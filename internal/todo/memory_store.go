package todo

import (
	"context"

	"github.com/google/uuid"
)

// MemoryStore 在进程内的共享列表上实现 Store，生命周期与进程一致。
type MemoryStore struct {
	list *List
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{list: NewList()}
}

// NewMemoryStoreFrom 在已有列表之上创建 MemoryStore。
func NewMemoryStoreFrom(list *List) *MemoryStore {
	if list == nil {
		list = NewList()
	}
	return &MemoryStore{list: list}
}

// Insert 实现 Store 接口。
func (m *MemoryStore) Insert(_ context.Context, todo Todo) error {
	return m.list.Append(todo)
}

// Update 实现 Store 接口。
func (m *MemoryStore) Update(_ context.Context, todo Todo) (int64, error) {
	if err := m.list.Update(todo.ID, todo.Description); err != nil {
		return 0, nil
	}
	return 1, nil
}

// List 返回列表快照。
func (m *MemoryStore) List(_ context.Context) ([]Todo, error) {
	return m.list.Snapshot(), nil
}

// Find 实现 Store 接口。
func (m *MemoryStore) Find(_ context.Context, id uuid.UUID) (Todo, error) {
	item, ok := m.list.Find(id)
	if !ok {
		return Todo{}, ErrTodoNotFound
	}
	return item, nil
}

// Delete 实现 Store 接口。
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	return int64(m.list.Remove(id)), nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
