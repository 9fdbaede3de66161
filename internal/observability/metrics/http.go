package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type requestKey struct {
	route  string
	method string
	code   string
}

type routeKey struct {
	route  string
	method string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type collector struct {
	mu       sync.Mutex
	requests map[requestKey]uint64
	errors   map[routeKey]uint64
	latency  map[routeKey]*histogram
}

var httpCollector = newCollector()

func newCollector() *collector {
	return &collector{
		requests: make(map[requestKey]uint64),
		errors:   make(map[routeKey]uint64),
		latency:  make(map[routeKey]*histogram),
	}
}

// ObserveHTTPRequest 记录一次 HTTP 请求的状态码与耗时。
// route 应为路由模板而非原始路径，避免标识符撑爆标签基数。
func ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	httpCollector.observe(route, method, status, duration)
}

func (c *collector) observe(route, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[requestKey{route: route, method: method, code: strconv.Itoa(status)}]++
	key := routeKey{route: route, method: method}
	if status >= 500 {
		c.errors[key]++
	}
	hist := c.latency[key]
	if hist == nil {
		hist = newHistogram()
		c.latency[key] = hist
	}
	hist.observe(duration.Seconds())
}

func newHistogram() *histogram {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// observe 累加到所有上界不小于 value 的桶，超出最后一个桶的值只计入 +Inf。
func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
}

// Handler 以 Prometheus 文本格式输出全部指标。
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var builder strings.Builder
		builder.Grow(2048)
		httpCollector.render(&builder)
		domainCollector.render(&builder)
		_, _ = fmt.Fprint(w, builder.String())
	})
}

func (c *collector) render(builder *strings.Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reqs := make([]requestKey, 0, len(c.requests))
	for key := range c.requests {
		reqs = append(reqs, key)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].route != reqs[j].route {
			return reqs[i].route < reqs[j].route
		}
		if reqs[i].method != reqs[j].method {
			return reqs[i].method < reqs[j].method
		}
		return reqs[i].code < reqs[j].code
	})
	errs := sortedRouteKeys(c.errors)
	lats := make([]routeKey, 0, len(c.latency))
	for key := range c.latency {
		lats = append(lats, key)
	}
	sortRouteKeys(lats)

	builder.WriteString("# HELP todo_http_requests_total Total number of HTTP requests processed.\n")
	builder.WriteString("# TYPE todo_http_requests_total counter\n")
	for _, key := range reqs {
		fmt.Fprintf(builder, "todo_http_requests_total{route=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			escape(key.route), escape(key.method), escape(key.code), c.requests[key])
	}

	builder.WriteString("# HELP todo_http_request_errors_total Total number of HTTP requests that resulted in a server error.\n")
	builder.WriteString("# TYPE todo_http_request_errors_total counter\n")
	for _, key := range errs {
		fmt.Fprintf(builder, "todo_http_request_errors_total{route=\"%s\",method=\"%s\"} %d\n",
			escape(key.route), escape(key.method), c.errors[key])
	}

	builder.WriteString("# HELP todo_http_request_duration_seconds HTTP request duration in seconds.\n")
	builder.WriteString("# TYPE todo_http_request_duration_seconds histogram\n")
	for _, key := range lats {
		hist := c.latency[key]
		route, method := escape(key.route), escape(key.method)
		for idx, bound := range hist.buckets {
			fmt.Fprintf(builder, "todo_http_request_duration_seconds_bucket{route=\"%s\",method=\"%s\",le=\"%s\"} %d\n",
				route, method, formatFloat(bound), hist.counts[idx])
		}
		fmt.Fprintf(builder, "todo_http_request_duration_seconds_bucket{route=\"%s\",method=\"%s\",le=\"+Inf\"} %d\n",
			route, method, hist.count)
		fmt.Fprintf(builder, "todo_http_request_duration_seconds_sum{route=\"%s\",method=\"%s\"} %s\n",
			route, method, formatFloat(hist.sum))
		fmt.Fprintf(builder, "todo_http_request_duration_seconds_count{route=\"%s\",method=\"%s\"} %d\n",
			route, method, hist.count)
	}
}

func sortedRouteKeys(values map[routeKey]uint64) []routeKey {
	keys := make([]routeKey, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sortRouteKeys(keys)
	return keys
}

func sortRouteKeys(keys []routeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].route != keys[j].route {
			return keys[i].route < keys[j].route
		}
		return keys[i].method < keys[j].method
	})
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
