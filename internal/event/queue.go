package event

import (
	"context"
)

// Handler 处理从队列中取出的事件。处理失败由 Handler 自行记录，事件取出后即视为已消费，不会重新投递。
type Handler func(ctx context.Context, evt Event)

// Publisher 负责向队列投递事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Consumer 负责从队列中消费事件。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Publisher
	Consumer
}
