package todo

import (
	"context"
	"database/sql"
	stdErrors "errors"

	"github.com/google/uuid"

	xerrors "HTMX-Todo/internal/errors"
	"HTMX-Todo/internal/storage/sqldb"
)

const (
	insertTodoSQL = `INSERT INTO todos (uuid, name) VALUES (?, ?)`
	updateTodoSQL = `UPDATE todos SET name = ? WHERE uuid = ?`
	listTodosSQL  = `SELECT uuid, name FROM todos`
	findTodoSQL   = `SELECT uuid, name FROM todos WHERE uuid = ?`
	deleteTodoSQL = `DELETE FROM todos WHERE uuid = ?`
)

// SQLStore 使用关系型数据库的 todos 表保存待办。
// 每个操作都是针对单表的一条语句，不跨语句开启事务。
type SQLStore struct {
	db *sqldb.DB
}

// NewSQLStore 创建 SQLStore。
func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert 写入一条新记录，标识符重复时返回 ErrTodoConflict。
func (s *SQLStore) Insert(ctx context.Context, todo Todo) error {
	if _, err := s.db.Exec(ctx, insertTodoSQL, todo.ID.String(), todo.Description); err != nil {
		if s.db.Dialect().IsDuplicateKey(err) {
			return ErrTodoConflict
		}
		return s.storageError(err, "插入待办失败")
	}
	return nil
}

// Update 覆盖描述并返回受影响行数。
func (s *SQLStore) Update(ctx context.Context, todo Todo) (int64, error) {
	res, err := s.db.Exec(ctx, updateTodoSQL, todo.Description, todo.ID.String())
	if err != nil {
		return 0, s.storageError(err, "更新待办失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.storageError(err, "获取影响行数失败")
	}
	return affected, nil
}

// List 以存储的自然顺序返回全部记录。
func (s *SQLStore) List(ctx context.Context) ([]Todo, error) {
	todos := make([]Todo, 0)
	err := s.db.Query(ctx, listTodosSQL, func(rows *sql.Rows) error {
		item, err := scanTodo(rows)
		if err != nil {
			return err
		}
		todos = append(todos, item)
		return nil
	})
	if err != nil {
		return nil, s.storageError(err, "查询待办列表失败")
	}
	return todos, nil
}

// Find 按标识符查询单条记录。
func (s *SQLStore) Find(ctx context.Context, id uuid.UUID) (Todo, error) {
	var (
		found Todo
		ok    bool
	)
	err := s.db.Query(ctx, findTodoSQL, func(rows *sql.Rows) error {
		if ok {
			return nil
		}
		item, err := scanTodo(rows)
		if err != nil {
			return err
		}
		found, ok = item, true
		return nil
	}, id.String())
	if err != nil {
		return Todo{}, s.storageError(err, "查询待办失败")
	}
	if !ok {
		return Todo{}, ErrTodoNotFound
	}
	return found, nil
}

// Delete 删除记录，目标不存在时返回 0 行。
func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.db.Exec(ctx, deleteTodoSQL, id.String())
	if err != nil {
		return 0, s.storageError(err, "删除待办失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.storageError(err, "获取影响行数失败")
	}
	return affected, nil
}

// Close 关闭底层连接池。
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanTodo(rows *sql.Rows) (Todo, error) {
	var rawID, name string
	if err := rows.Scan(&rawID, &name); err != nil {
		return Todo{}, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Todo{}, err
	}
	return Todo{ID: id, Description: name}, nil
}

// storageError 保留已分类的错误，其余统一包装为存储故障并标注方言。
func (s *SQLStore) storageError(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	dialect := xerrors.WithMetadata("dialect", string(s.db.Dialect()))
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message, dialect)
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message, dialect)
}

var _ Store = (*SQLStore)(nil)
