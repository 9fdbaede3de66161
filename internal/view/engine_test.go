package view

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
)

type item struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
}

func testTemplates() fstest.MapFS {
	return fstest.MapFS{
		"list.html":     {Data: []byte(`{% for todo in todos %}{% include "item.html" %}{% endfor %}`)},
		"item.html":     {Data: []byte(`<li id="{{ todo.id }}">{{ todo.description }}</li>`)},
		"plain.html":    {Data: []byte(`<p>{{ todo.description }}</p>`)},
		"maybe.html":    {Data: []byte(`{% if todo %}found{% else %}empty{% endif %}`)},
		"notes.txt":     {Data: []byte(`ignored`)},
		"nested/a.html": {Data: []byte(`nested`)},
	}
}

func TestRenderConvertsStructs(t *testing.T) {
	engine, err := New(WithFS(testTemplates()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	id := uuid.MustParse("0190f5b2-6c1e-7b3a-9a5e-1d2c3b4a5f60")

	var buf bytes.Buffer
	err = engine.Render(&buf, "list.html", Context{"todos": []item{{ID: id, Description: "write tests"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<li id="0190f5b2-6c1e-7b3a-9a5e-1d2c3b4a5f60">write tests</li>`
	if buf.String() != want {
		t.Fatalf("unexpected output:\nwant %s\ngot  %s", want, buf.String())
	}
}

func TestRenderEscapesDescriptions(t *testing.T) {
	engine, err := New(WithFS(testTemplates()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cases := map[string]string{
		`if a<b and c>d then swap`:             `if a&lt;b and c&gt;d then swap`,
		`use the <script> tag`:                 `use the &lt;script&gt; tag`,
		`<b>bold</b><script>alert(1)</script>`: `&lt;b&gt;bold&lt;/b&gt;&lt;script&gt;alert(1)&lt;/script&gt;`,
		`fish & chips`:                         `fish &amp; chips`,
	}
	for description, want := range cases {
		var buf bytes.Buffer
		todo := item{ID: uuid.New(), Description: description}
		if err := engine.Render(&buf, "plain.html", Context{"todo": todo}); err != nil {
			t.Fatalf("render %q: %v", description, err)
		}
		if got := buf.String(); got != "<p>"+want+"</p>" {
			t.Fatalf("description %q rendered as %q, want %q", description, got, want)
		}
	}
}

func TestRenderMissingValue(t *testing.T) {
	engine, err := New(WithFS(testTemplates()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	var buf bytes.Buffer
	if err := engine.Render(&buf, "maybe.html", Context{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "empty" {
		t.Fatalf("expected empty branch, got %q", buf.String())
	}
}

func TestEngineLoadsOnlyTemplates(t *testing.T) {
	engine, err := New(WithFS(testTemplates()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if engine.Has("notes.txt") {
		t.Fatalf("non-html files must not be loaded")
	}
	if !engine.Has("nested/a.html") {
		t.Fatalf("nested templates should be loaded, got %v", engine.Names())
	}
	if err := engine.Render(&bytes.Buffer{}, "absent.html", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestNewFailsFast(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without a template source")
	}
	broken := fstest.MapFS{"broken.html": {Data: []byte(`{% for %}`)}}
	if _, err := New(WithFS(broken)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := New(WithFS(fstest.MapFS{})); err == nil {
		t.Fatalf("expected error for empty template set")
	}
}

func TestRepositoryTemplatesParse(t *testing.T) {
	engine, err := New(WithDir("../../templates"))
	if err != nil {
		t.Fatalf("load repository templates: %v", err)
	}
	for _, name := range []string{"index.html", "home-body.html", "htmx-resp.html", "todos.html", "todo.html", "form.html"} {
		if !engine.Has(name) {
			t.Fatalf("missing template %s", name)
		}
	}
}
