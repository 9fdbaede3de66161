package sqldb

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	xerrors "HTMX-Todo/internal/errors"
)

// DefaultAcquireTimeout 是从连接池获取连接的默认等待时长。
const DefaultAcquireTimeout = 3 * time.Second

// ErrUnsupportedDriver 表示配置了未知的数据库驱动。
var ErrUnsupportedDriver = xerrors.New(xerrors.CodeInvalidArgument, "暂不支持的存储驱动")

// Config 描述数据库连接池参数。
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AcquireTimeout  time.Duration
}

// DB 包装连接池，所有语句都在限时获取的专用连接上执行。
type DB struct {
	db             *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
}

// Open 创建连接池并确认数据库可达。
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "数据库 DSN 不能为空")
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接数据库失败")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(5)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	wrapped := New(db, dialect, cfg.AcquireTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, wrapped.acquireTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到数据库")
	}
	return wrapped, nil
}

// New 使用已有连接池构造 DB，主要用于测试。
func New(db *sql.DB, dialect Dialect, acquireTimeout time.Duration) *DB {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &DB{db: db, dialect: dialect, acquireTimeout: acquireTimeout}
}

// Dialect 返回数据库方言。
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Conn 在获取超时内从连接池取出一个连接，调用方负责关闭。
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, d.acquireTimeout)
	defer cancel()

	conn, err := d.db.Conn(acquireCtx)
	if err != nil {
		dialect := xerrors.WithMetadata("dialect", string(d.dialect))
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "获取数据库连接超时", dialect)
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "获取数据库连接失败", dialect)
	}
	return conn, nil
}

// Exec 在专用连接上执行单条写语句。
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

// Query 在专用连接上执行查询，scan 在连接释放前逐行调用。
func (d *DB) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	conn, err := d.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close 关闭底层连接池。
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}
