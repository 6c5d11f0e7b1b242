// Package journal keeps a record of every state-changing call a session
// submits, and optionally fans those records out to Redis or RabbitMQ.
package journal

import (
	"context"
	"time"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/google/uuid"
)

// Status 描述一次交易在日志中的最终状态。
type Status string

const (
	// StatusMined 交易已上链且执行成功。
	StatusMined Status = "mined"
	// StatusReverted 交易已上链但执行回滚。
	StatusReverted Status = "reverted"
	// StatusFailed 交易未能发送或未能确认。
	StatusFailed Status = "failed"
)

// Entry 是交易日志中的一条记录。
type Entry struct {
	ID          string `json:"id"`
	Operation   string `json:"operation"`
	Sender      string `json:"sender"`
	Contract    string `json:"contract"`
	NetworkID   string `json:"network_id"`
	TxHash      string `json:"tx_hash,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	Value       string `json:"value"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

var (
	// ErrEntryNotFound 表示日志记录不存在。
	ErrEntryNotFound = xerrors.New(CodeEntryNotFound, "journal entry not found")
	// ErrEntryConflict 表示日志记录 ID 重复。
	ErrEntryConflict = xerrors.New(CodeEntryConflict, "journal entry conflict")
)

const (
	CodeEntryNotFound xerrors.Code = "JOURNAL_ENTRY_NOT_FOUND"
	CodeEntryConflict xerrors.Code = "JOURNAL_ENTRY_CONFLICT"
	CodePublish       xerrors.Code = "JOURNAL_PUBLISH_FAILED"
)

func init() {
	xerrors.Register(CodeEntryNotFound, xerrors.Attributes{
		Message:  "journal entry not found",
		Severity: xerrors.SeverityInfo,
		ExitCode: 3,
	})
	xerrors.Register(CodeEntryConflict, xerrors.Attributes{
		Message:  "journal entry conflict",
		Severity: xerrors.SeverityWarning,
		ExitCode: 3,
	})
	xerrors.Register(CodePublish, xerrors.Attributes{
		Message:  "failed to publish journal entry",
		Severity: xerrors.SeverityCritical,
		ExitCode: 6,
	})
}

// Prepare 为缺少 ID 与时间戳的记录补齐默认值。
func (e *Entry) Prepare() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	if e.Value == "" {
		e.Value = "0"
	}
}

// Recorder 接收会话产生的交易记录。
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Store 抽象了交易日志的持久化接口。
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, opts ListOptions) ([]*Entry, error)
	Close() error
}

// Publisher 负责把交易记录投递到外部消息系统。
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
	Close() error
}
