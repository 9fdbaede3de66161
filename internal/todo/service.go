package todo

import (
	"context"
	stdErrors "errors"
	"log/slog"

	"github.com/google/uuid"

	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/event"
	"HTMX-Todo/internal/observability/metrics"
	"HTMX-Todo/pkg/logger"
)

// Service 负责待办的增删改查，并在变更生效后发布事件。
type Service struct {
	store     Store
	publisher event.Publisher
	logger    *slog.Logger
}

// ServiceOption 定义可选配置。
type ServiceOption func(*Service)

// WithPublisher 配置变更事件的发布者。
func WithPublisher(publisher event.Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithLogger 指定日志输出。
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService 构造待办服务。
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logger.Named("todo")
	}
	return s
}

// Add 生成新的标识符并保存待办。
// 返回的 Todo 在存储失败时依然有效，调用方可据此决定是否继续渲染。
func (s *Service) Add(ctx context.Context, description string) (Todo, error) {
	if s.store == nil {
		return Todo{}, xerrors.New(xerrors.CodeInitializationFailure, "待办服务未初始化")
	}
	item := Todo{ID: NewID(), Description: description}
	err := s.store.Insert(ctx, item)
	metrics.ObserveStoreOperation("insert", err)
	if err != nil {
		return item, err
	}
	s.publish(ctx, event.KindAdded, item)
	return item, nil
}

// Update 覆盖指定待办的描述，目标不存在时返回 ErrTodoNotFound。
func (s *Service) Update(ctx context.Context, id uuid.UUID, description string) (Todo, error) {
	if s.store == nil {
		return Todo{}, xerrors.New(xerrors.CodeInitializationFailure, "待办服务未初始化")
	}
	item := Todo{ID: id, Description: description}
	affected, err := s.store.Update(ctx, item)
	metrics.ObserveStoreOperation("update", err)
	if err != nil {
		return item, err
	}
	if affected == 0 {
		return item, ErrTodoNotFound
	}
	s.publish(ctx, event.KindUpdated, item)
	return item, nil
}

// List 返回全部待办，结果不会为 nil。
func (s *Service) List(ctx context.Context) ([]Todo, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "待办服务未初始化")
	}
	items, err := s.store.List(ctx)
	metrics.ObserveStoreOperation("list", err)
	if err != nil {
		return []Todo{}, err
	}
	if items == nil {
		items = []Todo{}
	}
	return items, nil
}

// Find 查询单条待办。
func (s *Service) Find(ctx context.Context, id uuid.UUID) (Todo, error) {
	if s.store == nil {
		return Todo{}, xerrors.New(xerrors.CodeInitializationFailure, "待办服务未初始化")
	}
	item, err := s.store.Find(ctx, id)
	if stdErrors.Is(err, ErrTodoNotFound) {
		metrics.ObserveStoreOperation("find", nil)
	} else {
		metrics.ObserveStoreOperation("find", err)
	}
	return item, err
}

// Delete 删除指定待办，目标不存在不视为错误。
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "待办服务未初始化")
	}
	removed, err := s.store.Delete(ctx, id)
	metrics.ObserveStoreOperation("delete", err)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.publish(ctx, event.KindDeleted, Todo{ID: id})
	}
	return nil
}

// Close 释放底层存储。
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// publish 的失败只记录日志，不影响已经生效的变更。
func (s *Service) publish(ctx context.Context, kind event.Kind, item Todo) {
	if s.publisher == nil {
		return
	}
	evt := event.New(kind, item.ID.String(), item.Description)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.LogAttrs(ctx, xerrors.SeverityOf(err).Level(), "发布变更事件失败",
			slog.String("kind", string(kind)),
			slog.String("todo_id", evt.TodoID),
			slog.Any("error", err),
		)
	}
}
