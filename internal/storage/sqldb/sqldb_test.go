package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/storage/sqldb/sqltest"
)

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"mysql":      DialectMySQL,
		" SQLite ":   DialectSQLite,
		"sqlite3":    DialectSQLite,
		"postgresql": DialectPostgres,
		"pgx":        DialectPostgres,
	}
	for input, want := range cases {
		got, err := ParseDialect(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: want %s got %s", input, want, got)
		}
	}
	if _, err := ParseDialect("oracle"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
	if DialectPostgres.DriverName() != "pgx" || DialectMySQL.DriverName() != "mysql" {
		t.Fatalf("unexpected driver names")
	}
}

func TestRebind(t *testing.T) {
	query := `UPDATE todos SET name = ? WHERE uuid = ?`
	if got := DialectMySQL.Rebind(query); got != query {
		t.Fatalf("mysql should keep placeholders, got %q", got)
	}
	if got := DialectSQLite.Rebind(query); got != query {
		t.Fatalf("sqlite should keep placeholders, got %q", got)
	}
	want := `UPDATE todos SET name = $1 WHERE uuid = $2`
	if got := DialectPostgres.Rebind(query); got != want {
		t.Fatalf("postgres rebind: want %q got %q", want, got)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1045}, false},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"sqlite not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped", errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"}), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := DialectMySQL.IsDuplicateKey(tc.err); got != tc.want {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestExecAcquireTimeout(t *testing.T) {
	raw, _ := sqltest.NewDB(t)
	db := New(raw, DialectMySQL, 50*time.Millisecond)

	held, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("acquire first connection: %v", err)
	}
	defer held.Close()

	_, err = db.Exec(context.Background(), `DELETE FROM todos WHERE uuid = ?`, "x")
	if err == nil {
		t.Fatalf("expected acquire timeout")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("expected timeout code, got %s (%v)", xerrors.CodeOf(err), err)
	}
	if coded, _ := xerrors.From(err); coded.Metadata()["dialect"] != "mysql" {
		t.Fatalf("expected dialect metadata, got %+v", coded.Metadata())
	}
}

func TestQueryRebindsAndScans(t *testing.T) {
	raw, drv := sqltest.NewDB(t,
		sqltest.Query(`SELECT uuid, name FROM todos WHERE uuid = $1`, sqltest.Rows{
			Columns: []string{"uuid", "name"},
			Values:  [][]driver.Value{{"a", "first"}},
		}).WithArgs("a"),
	)
	db := New(raw, DialectPostgres, 0)

	var names []string
	err := db.Query(context.Background(), `SELECT uuid, name FROM todos WHERE uuid = ?`, func(rows *sql.Rows) error {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	}, "a")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(names) != 1 || names[0] != "first" {
		t.Fatalf("unexpected rows: %v", names)
	}
	drv.AssertConsumed(t)
}

const createMigrationsSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`

func TestMigrateAppliesPending(t *testing.T) {
	files := fstest.MapFS{
		"0001_create_todos.sql": {Data: []byte("-- todos\nCREATE TABLE todos (uuid VARCHAR(36) PRIMARY KEY, name TEXT NOT NULL);\n")},
		"0002_index.sql":        {Data: []byte("CREATE INDEX idx_name ON todos (name);")},
		"README.md":             {Data: []byte("ignored")},
	}
	raw, drv := sqltest.NewDB(t,
		sqltest.Exec(createMigrationsSQL, sqltest.Result{}),
		sqltest.Query(`SELECT version FROM schema_migrations`, sqltest.Rows{
			Columns: []string{"version"},
			Values:  [][]driver.Value{{"0001"}},
		}),
		sqltest.Begin(),
		sqltest.Exec(`CREATE INDEX idx_name ON todos (name)`, sqltest.Result{}),
		sqltest.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, sqltest.Result{Affected: 1}),
		sqltest.Commit(),
	)
	db := New(raw, DialectMySQL, 0)

	if err := db.migrate(context.Background(), files); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	drv.AssertConsumed(t)
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	files := fstest.MapFS{
		"0001_create_todos.sql": {Data: []byte("CREATE TABLE todos (uuid VARCHAR(36) PRIMARY KEY, name TEXT NOT NULL);")},
	}
	raw, drv := sqltest.NewDB(t,
		sqltest.Exec(createMigrationsSQL, sqltest.Result{}),
		sqltest.Query(`SELECT version FROM schema_migrations`, sqltest.Rows{Columns: []string{"version"}}),
		sqltest.Begin(),
		sqltest.Exec(`CREATE TABLE todos (uuid VARCHAR(36) PRIMARY KEY, name TEXT NOT NULL)`, sqltest.Result{}).
			WithError(errors.New("syntax error")),
		sqltest.Rollback(),
	)
	db := New(raw, DialectMySQL, 0)

	if err := db.migrate(context.Background(), files); err == nil {
		t.Fatalf("expected migration failure")
	}
	drv.AssertConsumed(t)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	loaded, err := loadMigrationFiles(embeddedMigrations)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(loaded) == 0 || loaded[0].version != "0001" {
		t.Fatalf("unexpected embedded migrations: %+v", loaded)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	got := splitSQLStatements("-- comment\nCREATE TABLE a (id INT);\n\n  ;CREATE TABLE b (id INT);")
	if len(got) != 2 || got[0] != "CREATE TABLE a (id INT)" || got[1] != "CREATE TABLE b (id INT)" {
		t.Fatalf("unexpected statements: %q", got)
	}
}
