package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFileAndAudit(t *testing.T) {
	dir := t.TempDir()
	appLog := filepath.Join(dir, "app.log")
	auditLog := filepath.Join(dir, "audit", "audit.log")

	err := Init(Config{
		Level:       "debug",
		OutputPaths: []string{appLog},
		Audit:       AuditConfig{Enabled: true, Path: auditLog},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Config{}) })

	Named("web").Debug("request served", "route", "/api/todos")
	Audit().Info("todo_changed", "kind", "added")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	content, err := os.ReadFile(appLog)
	if err != nil {
		t.Fatalf("read app log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode app log %q: %v", content, err)
	}
	if entry["component"] != "web" || entry["route"] != "/api/todos" {
		t.Fatalf("unexpected app entry: %v", entry)
	}

	audit, err := os.ReadFile(auditLog)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(audit), `"kind":"added"`) {
		t.Fatalf("audit log missing entry: %s", audit)
	}
	if strings.Contains(string(content), "todo_changed") {
		t.Fatalf("audit entry leaked into application log")
	}
}

func TestInitRejectsEmptyAuditPath(t *testing.T) {
	if err := Init(Config{Audit: AuditConfig{Enabled: true}}); err == nil {
		t.Fatalf("expected error for empty audit path")
	}
	if L() == nil {
		t.Fatalf("failed init must keep a usable logger")
	}
}

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotate.log")
	writer, err := newRotatingWriter(path, RotationConfig{MaxBackups: 2})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	writer.maxSize = 16
	defer writer.Close()

	for i := 0; i < 4; i++ {
		if _, err := writer.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected at most 2 backups, stat err=%v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for input, want := range cases {
		if got := parseLevel(input).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}
