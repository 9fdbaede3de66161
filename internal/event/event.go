package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind 表示待办变更的类型。
type Kind string

const (
	KindAdded   Kind = "added"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Valid 判断是否为已知的变更类型。
func (k Kind) Valid() bool {
	switch k {
	case KindAdded, KindUpdated, KindDeleted:
		return true
	default:
		return false
	}
}

// Event 描述一次已经生效的待办变更。
type Event struct {
	Kind        Kind   `json:"kind"`
	TodoID      string `json:"todo_id"`
	Description string `json:"description,omitempty"`
	OccurredAt  int64  `json:"occurred_at"`
}

// New 创建一个带当前时间戳的事件。
func New(kind Kind, todoID, description string) Event {
	return Event{
		Kind:        kind,
		TodoID:      todoID,
		Description: description,
		OccurredAt:  time.Now().Unix(),
	}
}

// Encode 序列化事件，用于跨进程队列。
func Encode(evt Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return payload, nil
}

// Decode 反序列化事件。
func Decode(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("解析事件失败: %w", err)
	}
	return evt, nil
}
