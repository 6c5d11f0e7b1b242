package journal

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/pkg/logger"

	"github.com/go-sql-driver/mysql"
)

// MySQLStore 使用 MySQL 的 tx_journal 表记录交易日志。
type MySQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMySQLStore 连接 MySQL 并确保表结构存在。
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db, logger: logger.Named("journal")}
	if err := store.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewMySQLStoreWithDB 复用已打开的连接，不会再次建表。
func NewMySQLStoreWithDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, logger: logger.Named("journal")}
}

// Append 插入一条日志记录。
func (s *MySQLStore) Append(ctx context.Context, entry Entry) error {
	entry.Prepare()
	const stmt = `INSERT INTO tx_journal
        (id, operation, sender, contract, network_id, tx_hash, block_number, gas_used, value, status, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.Operation,
		entry.Sender,
		entry.Contract,
		entry.NetworkID,
		entry.TxHash,
		entry.BlockNumber,
		entry.GasUsed,
		entry.Value,
		entry.Status,
		entry.Error,
		entry.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrEntryConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入交易日志失败")
	}
	return nil
}

const selectColumns = `id, operation, sender, contract, network_id, tx_hash, block_number, gas_used, value, status, error, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry   Entry
		errText sql.NullString
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Operation,
		&entry.Sender,
		&entry.Contract,
		&entry.NetworkID,
		&entry.TxHash,
		&entry.BlockNumber,
		&entry.GasUsed,
		&entry.Value,
		&entry.Status,
		&errText,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.Error = errText.String
	return &entry, nil
}

// Get 查询指定记录。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM tx_journal WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询交易日志失败")
	}
	return entry, nil
}

// List 按写入顺序倒序返回记录。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	opts.applyDefaults()

	query, args := buildListQuery(opts)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询交易日志失败")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析交易日志失败")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历交易日志失败")
	}
	return entries, nil
}

func buildListQuery(opts ListOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if opts.Sender != "" {
		clauses = append(clauses, "sender = ?")
		args = append(args, opts.Sender)
	}
	if opts.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, opts.Operation)
	}
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + selectColumns + ` FROM tx_journal`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, opts.Limit)
	return query, args
}

// Close 关闭数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
