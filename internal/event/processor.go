package event

import (
	"context"
	"log/slog"

	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/observability/metrics"
	"HTMX-Todo/pkg/logger"
)

// Processor 从队列消费变更事件并写入审计日志。
type Processor struct {
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
	audit       *slog.Logger
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定运行日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithAuditLogger 指定审计日志输出。
func WithAuditLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.audit = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		consumer:    consumer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = logger.Named("events")
	}
	if p.audit == nil {
		p.audit = logger.Audit()
	}
	return p
}

// Start 启动事件处理循环，直到 ctx 结束。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置事件消费者")
	}
	p.logger.Info("事件处理器已启动", slog.Int("workers", p.workerCount))
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, evt Event) {
	if !evt.Kind.Valid() {
		p.logger.Warn("忽略未知类型的事件", slog.String("kind", string(evt.Kind)))
		metrics.ObserveEvent(string(evt.Kind), false)
		return
	}
	p.audit.LogAttrs(ctx, slog.LevelInfo, "todo_changed",
		slog.String("kind", string(evt.Kind)),
		slog.String("todo_id", evt.TodoID),
		slog.String("description", evt.Description),
		slog.Int64("occurred_at", evt.OccurredAt),
	)
	metrics.ObserveEvent(string(evt.Kind), true)
}
