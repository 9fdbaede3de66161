package api

import (
	"bytes"
	stdErrors "errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"HTMX-Todo/internal/config"
	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/todo"
	"HTMX-Todo/internal/view"
)

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, nil)
	}
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	items, err := s.todos.List(r.Context())
	if err != nil {
		if s.strict() {
			s.reject(w, r, "查询待办列表失败", err)
			return
		}
		s.logError(r, "查询待办列表失败，返回空列表", err)
		items = []todo.Todo{}
	}
	s.render(w, r, http.StatusOK, "todos.html", view.Context{"todos": items})
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	data := view.Context{}
	item, err := s.todos.Find(r.Context(), id)
	switch {
	case err == nil:
		data["todo"] = item
	case stdErrors.Is(err, todo.ErrTodoNotFound):
	case s.strict():
		s.reject(w, r, "查询待办失败", err)
		return
	default:
		s.logError(r, "查询待办失败，返回空表单", err)
	}
	s.render(w, r, http.StatusOK, "form.html", data)
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	description, ok := formDescription(w, r)
	if !ok {
		return
	}
	item, err := s.todos.Add(r.Context(), description)
	if err != nil {
		if s.strict() {
			s.reject(w, r, "新增待办失败", err)
			return
		}
		s.logError(r, "新增待办失败", err, slog.String("todo_id", item.ID.String()))
	}
	s.render(w, r, http.StatusOK, "todo.html", view.Context{"todo": item})
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	description, ok := formDescription(w, r)
	if !ok {
		return
	}
	item, err := s.todos.Update(r.Context(), id, description)
	if err != nil {
		if stdErrors.Is(err, todo.ErrTodoNotFound) {
			s.reject(w, r, "待办不存在", err)
			return
		}
		if s.strict() {
			s.reject(w, r, "更新待办失败", err)
			return
		}
		s.logError(r, "更新待办失败", err, slog.String("todo_id", id.String()))
	}
	s.render(w, r, http.StatusOK, "todo.html", view.Context{"todo": item})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.todos.Delete(r.Context(), id); err != nil {
		s.logError(r, "删除待办失败", err, slog.String("todo_id", id.String()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := todo.ParseID(mux.Vars(r)["id"])
	if err != nil {
		s.reject(w, r, "无效的待办标识符", err)
		return uuid.Nil, false
	}
	return id, true
}

// formDescription 读取表单中的 description 字段，缺失时返回 422。空字符串是合法值。
func formDescription(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return "", false
	}
	values, ok := r.PostForm["description"]
	if !ok || len(values) == 0 {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return "", false
	}
	return values[0], true
}

func (s *Server) strict() bool {
	return s.errorPolicy == config.ErrorPolicyStrict
}

// reject 记录错误并按错误码的默认状态码返回不含细节的响应，未分类的错误按 500 处理。
func (s *Server) reject(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logError(r, msg, err)
	status := xerrors.StatusOf(err)
	http.Error(w, http.StatusText(status), status)
}

// logError 按错误的严重程度选择日志级别，并附带错误码与元数据。
func (s *Server) logError(r *http.Request, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("route", r.URL.Path),
		slog.String("code", string(xerrors.CodeOf(err))),
		slog.Any("error", err),
	)
	if coded, ok := xerrors.From(err); ok {
		for key, value := range coded.Metadata() {
			attrs = append(attrs, slog.String(key, value))
		}
	}
	s.logger.LogAttrs(r.Context(), xerrors.SeverityOf(err).Level(), msg, attrs...)
}

// render 先渲染到缓冲区，模板失败时仍可返回 500。
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.Context) {
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, data); err != nil {
		s.reject(w, r, "渲染模板失败", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
