package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type outcomeKey struct {
	name    string
	outcome string
}

type domainStats struct {
	mu      sync.Mutex
	storage map[outcomeKey]uint64
	events  map[outcomeKey]uint64
}

var domainCollector = &domainStats{
	storage: make(map[outcomeKey]uint64),
	events:  make(map[outcomeKey]uint64),
}

// ObserveStoreOperation 记录一次存储操作的结果。
func ObserveStoreOperation(op string, err error) {
	domainCollector.add(domainCollector.storage, op, err == nil)
}

// ObserveEvent 记录一次变更事件的处理结果。
func ObserveEvent(kind string, handled bool) {
	domainCollector.add(domainCollector.events, kind, handled)
}

func (d *domainStats) add(target map[outcomeKey]uint64, name string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	d.mu.Lock()
	target[outcomeKey{name: name, outcome: outcome}]++
	d.mu.Unlock()
}

func (d *domainStats) render(builder *strings.Builder) {
	d.mu.Lock()
	defer d.mu.Unlock()

	builder.WriteString("# HELP todo_store_operations_total Total number of storage operations by outcome.\n")
	builder.WriteString("# TYPE todo_store_operations_total counter\n")
	for _, key := range sortedOutcomes(d.storage) {
		fmt.Fprintf(builder, "todo_store_operations_total{op=\"%s\",outcome=\"%s\"} %d\n",
			escape(key.name), key.outcome, d.storage[key])
	}

	builder.WriteString("# HELP todo_events_total Total number of change events consumed by outcome.\n")
	builder.WriteString("# TYPE todo_events_total counter\n")
	for _, key := range sortedOutcomes(d.events) {
		fmt.Fprintf(builder, "todo_events_total{kind=\"%s\",outcome=\"%s\"} %d\n",
			escape(key.name), key.outcome, d.events[key])
	}
}

func sortedOutcomes(values map[outcomeKey]uint64) []outcomeKey {
	keys := make([]outcomeKey, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].outcome < keys[j].outcome
	})
	return keys
}
