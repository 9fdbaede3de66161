package event

import (
	"context"
	"sync"

	xerrors "HTMX-Todo/internal/errors"
)

var (
	// ErrQueueClosed 表示队列已经关闭，通常发生在退出过程中。
	ErrQueueClosed = xerrors.New(xerrors.CodeQueueFailure, "队列已关闭", xerrors.WithSeverity(xerrors.SeverityInfo))
	// ErrQueueFull 表示内存队列缓冲已满，事件被丢弃。
	ErrQueueFull = xerrors.New(xerrors.CodeQueueFailure, "队列已满")
)

// MemoryQueue 使用 channel 在进程内传递事件。
// Publish 不会阻塞请求路径：缓冲区满时直接返回 ErrQueueFull。
type MemoryQueue struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue 创建一个内存队列。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan Event, size)}
}

// Publish 将事件投递到队列。
func (q *MemoryQueue) Publish(ctx context.Context, evt Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume 启动指定数量的工作协程消费队列中的事件。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-q.ch:
					if !ok {
						return
					}
					handler(ctx, evt)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close 关闭内存队列。
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.ch)
		q.closed = true
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
