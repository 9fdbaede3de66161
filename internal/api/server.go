package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"HTMX-Todo/internal/config"
	"HTMX-Todo/internal/observability/metrics"
	"HTMX-Todo/internal/todo"
	"HTMX-Todo/internal/view"
	"HTMX-Todo/pkg/logger"
)

// Renderer 渲染指定名称的模板。
type Renderer interface {
	Render(w io.Writer, name string, data view.Context) error
}

// Server 负责暴露页面与 HTMX 片段接口。
type Server struct {
	addr            string
	todos           *todo.Service
	views           Renderer
	assetsDir       string
	errorPolicy     string
	metrics         bool
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Option 定义可选配置。
type Option func(*Server)

// WithAssetsDir 指定静态资源目录，为空时不挂载 /assets。
func WithAssetsDir(dir string) Option {
	return func(s *Server) {
		s.assetsDir = dir
	}
}

// WithErrorPolicy 设置存储失败时的响应策略，取值见 config.ErrorPolicyQuiet 与 config.ErrorPolicyStrict。
func WithErrorPolicy(policy string) Option {
	return func(s *Server) {
		if policy != "" {
			s.errorPolicy = policy
		}
	}
}

// WithMetrics 控制是否暴露 /metrics。
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.metrics = enabled
	}
}

// WithShutdownTimeout 设置优雅退出的等待时间。
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithLogger 指定日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer 构造服务实例。
func NewServer(addr string, todos *todo.Service, views Renderer, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		todos:           todos,
		views:           views,
		errorPolicy:     config.ErrorPolicyQuiet,
		metrics:         true,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	return s
}

// Handler 返回完整的路由。
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.page("index.html"))
	r.Methods(http.MethodGet).Path("/page/home").HandlerFunc(s.page("home-body.html"))
	r.Methods(http.MethodGet).Path("/api/htmx-test").HandlerFunc(s.page("htmx-resp.html"))
	r.Methods(http.MethodGet).Path("/api/todos").HandlerFunc(s.handleListTodos)
	r.Methods(http.MethodGet).Path("/api/edit/{id}").HandlerFunc(s.handleEditForm)
	r.Methods(http.MethodPost).Path("/api/add-todo").HandlerFunc(s.handleAddTodo)
	r.Methods(http.MethodPatch).Path("/api/update/{id}").HandlerFunc(s.handleUpdateTodo)
	r.Methods(http.MethodDelete).Path("/api/delete/{id}").HandlerFunc(s.handleDeleteTodo)

	if s.assetsDir != "" {
		assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir)))
		r.Methods(http.MethodGet, http.MethodHead).PathPrefix("/assets/").Handler(assets)
	}
	if s.metrics {
		r.Methods(http.MethodGet).Path("/metrics").Handler(metrics.Handler())
	}
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("HTTP 服务已启动", slog.String("address", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// observe 记录访问日志与请求指标，标签使用路由模板。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.ObserveHTTPRequest(route, r.Method, m.Code, m.Duration)
		s.logger.LogAttrs(r.Context(), slog.LevelInfo, "handled",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.String("path", r.URL.Path),
			slog.Int("status", m.Code),
			slog.Int64("bytes", m.Written),
			slog.Duration("duration", m.Duration),
		)
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
