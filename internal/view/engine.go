package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Context 是传入模板的数据。
type Context map[string]any

// Option 在构造 Engine 时调整配置。
type Option func(*config)

type config struct {
	dir       string
	files     fs.FS
	extension string
	reload    bool
}

// WithDir 从磁盘目录加载模板。
func WithDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS 从 fs.FS 加载模板，主要用于测试与内嵌模板。
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithReload 让每次渲染都重新解析模板，便于本地调试。
func WithReload(enabled bool) Option {
	return func(cfg *config) {
		cfg.reload = enabled
	}
}

// Engine 持有预先解析好的模板集合。
type Engine struct {
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	reload    bool
}

// New 解析全部模板，任一模板有语法错误都会直接返回错误。
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: ".html"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	var (
		loader pongo2.TemplateLoader
		source fs.FS
	)
	switch {
	case cfg.files != nil:
		loader = pongo2.NewFSLoader(cfg.files)
		source = cfg.files
	case cfg.dir != "":
		local, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("view: create loader for %s: %w", cfg.dir, err)
		}
		loader = local
		source = os.DirFS(cfg.dir)
	default:
		return nil, errors.New("view: need either a template directory or an fs.FS")
	}

	set := pongo2.NewSet("todo", loader)
	set.Debug = cfg.reload

	names, err := templateNames(source, cfg.extension)
	if err != nil {
		return nil, err
	}
	engine := &Engine{set: set, templates: make(map[string]*pongo2.Template, len(names)), reload: cfg.reload}
	for _, name := range names {
		tmpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("view: parse template %q: %w", name, err)
		}
		engine.templates[name] = tmpl
	}
	return engine, nil
}

// Has 判断模板是否存在。
func (e *Engine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// Names 返回已加载的模板名称。
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render 将模板渲染到 w。data 中的结构体会按 JSON 标签转换为模板可访问的字段。
func (e *Engine) Render(w io.Writer, name string, data Context) error {
	tmpl, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("view: template %q not found", name)
	}
	if e.reload {
		fresh, err := e.set.FromFile(name)
		if err != nil {
			return fmt.Errorf("view: reload template %q: %w", name, err)
		}
		tmpl = fresh
	}

	ctx, err := toPongoContext(data)
	if err != nil {
		return fmt.Errorf("view: convert data for %q: %w", name, err)
	}
	if err := tmpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("view: execute template %q: %w", name, err)
	}
	return nil
}

func templateNames(files fs.FS, extension string) ([]string, error) {
	var names []string
	err := fs.WalkDir(files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != extension {
			return nil
		}
		names = append(names, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view: list templates: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("view: no templates found")
	}
	return names, nil
}

// toPongoContext 通过 JSON 往返把 uuid.UUID 等类型转换成字符串。
func toPongoContext(data Context) (pongo2.Context, error) {
	out := make(pongo2.Context, len(data))
	for key, value := range data {
		converted, err := toTemplateValue(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = converted
	}
	return out, nil
}

func toTemplateValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, int, int64, float64:
		return v, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
