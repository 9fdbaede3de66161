package todo

import (
	"sync"

	"github.com/google/uuid"
)

// List 是进程内共享、受互斥锁保护的有序待办集合。
// 读取时在锁内复制快照，渲染阶段不会持有锁。
type List struct {
	mu    sync.Mutex
	items []Todo
}

// NewList 创建一个空列表。
func NewList() *List {
	return &List{}
}

// Add 生成新的标识符并追加一条待办。
func (l *List) Add(description string) Todo {
	item := Todo{ID: NewID(), Description: description}
	l.mu.Lock()
	l.items = append(l.items, item)
	l.mu.Unlock()
	return item
}

// Append 追加一条已分配标识符的待办，标识符重复时返回 ErrTodoConflict。
func (l *List) Append(item Todo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexOf(item.ID) >= 0 {
		return ErrTodoConflict
	}
	l.items = append(l.items, item)
	return nil
}

// Update 替换第一条匹配记录的描述。
func (l *List) Update(id uuid.UUID, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return ErrTodoNotFound
	}
	l.items[idx].Description = description
	return nil
}

// Remove 删除所有匹配的记录并返回删除数量，不存在时返回 0。
func (l *List) Remove(id uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0]
	removed := 0
	for _, item := range l.items {
		if item.ID == id {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	// 清理尾部残留，避免旧元素被底层数组引用。
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = Todo{}
	}
	l.items = kept
	return removed
}

// Find 返回第一条匹配记录的副本。
func (l *List) Find(id uuid.UUID) (Todo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return Todo{}, false
	}
	return l.items[idx], true
}

// Snapshot 返回按插入顺序排列的完整副本。
func (l *List) Snapshot() []Todo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Todo, len(l.items))
	copy(out, l.items)
	return out
}

// Len 返回当前记录数量。
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *List) indexOf(id uuid.UUID) int {
	for i, item := range l.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
