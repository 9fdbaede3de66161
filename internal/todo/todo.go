package todo

import (
	"github.com/google/uuid"

	xerrors "HTMX-Todo/internal/errors"
)

// Todo 是系统中唯一的领域实体：一个标识符加一段描述。
type Todo struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
}

const (
	CodeTodoNotFound xerrors.Code = "TODO_NOT_FOUND"
	CodeTodoConflict xerrors.Code = "TODO_CONFLICT"
)

var (
	// ErrTodoNotFound 表示指定的待办不存在。
	ErrTodoNotFound = xerrors.New(CodeTodoNotFound, "todo not found")
	// ErrTodoConflict 表示相同标识符的待办已经存在。
	ErrTodoConflict = xerrors.New(CodeTodoConflict, "todo already exists")
)

func init() {
	xerrors.Register(CodeTodoNotFound, xerrors.Attributes{
		Message:  "todo not found",
		Severity: xerrors.SeverityInfo,
		Status:   404,
	})
	xerrors.Register(CodeTodoConflict, xerrors.Attributes{
		Message:  "todo already exists",
		Severity: xerrors.SeverityWarning,
		Status:   409,
	})
}

// NewID 生成新的待办标识符，优先使用按时间排序的 UUIDv7。
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ParseID 解析外部传入的标识符。
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "无效的待办标识符")
	}
	return id, nil
}
