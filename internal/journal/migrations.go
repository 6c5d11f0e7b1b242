package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"ProjectSubmission-Chain/deploy/migrations"
	xerrors "ProjectSubmission-Chain/internal/errors"
)

var embeddedMigrations fs.FS = migrations.Files

// migration 是一个版本化的 SQL 文件。checksum 记录在迁移表中，
// 已应用的文件被修改时启动直接失败。
type migration struct {
	version    int
	name       string
	checksum   string
	statements []string
}

const migrationTable = `CREATE TABLE IF NOT EXISTS journal_schema_migrations (
	version INT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum CHAR(64) NOT NULL,
	applied_at BIGINT NOT NULL
)`

// runMigrations 依次执行尚未应用的 tx_journal 迁移。
func (s *MySQLStore) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrationTable); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建 journal_schema_migrations 表失败")
	}
	pending, err := loadMigrations(embeddedMigrations)
	if err != nil {
		return err
	}
	applied, err := s.appliedChecksums(ctx)
	if err != nil {
		return err
	}
	pending, err = pendingMigrations(pending, applied)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.Info("已应用交易日志迁移", "version", m.version, "name", m.name)
	}
	return nil
}

func (s *MySQLStore) appliedChecksums(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, checksum FROM journal_schema_migrations`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询迁移版本失败")
	}
	defer rows.Close()

	applied := map[int]string{}
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析迁移版本失败")
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历迁移版本失败")
	}
	return applied, nil
}

// apply 在单个事务中执行一个迁移文件。MySQL 的 DDL 会隐式提交，
// 中途失败的迁移需要手动清理。
func (s *MySQLStore) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启迁移事务失败")
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("执行迁移 %s 第 %d 条语句失败", m.name, i+1))
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO journal_schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		m.version, m.name, m.checksum, time.Now().Unix()); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "记录迁移版本失败")
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交迁移事务失败")
	}
	return nil
}

// pendingMigrations 返回尚未应用的迁移，并校验已应用迁移的内容未被修改。
func pendingMigrations(all []migration, applied map[int]string) ([]migration, error) {
	var pending []migration
	for _, m := range all {
		checksum, ok := applied[m.version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if checksum != m.checksum {
			return nil, xerrors.New(xerrors.CodeStorageFailure,
				fmt.Sprintf("迁移 %s 在应用后被修改", m.name),
				xerrors.WithMetadata("version", strconv.Itoa(m.version)))
		}
	}
	return pending, nil
}

// loadMigrations 读取 NNNN_name.sql 形式的文件并按版本号排序，版本号重复时报错。
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	seen := map[int]string{}
	var out []migration
	for _, name := range names {
		version, err := migrationVersion(name)
		if err != nil {
			return nil, err
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("迁移 %s 与 %s 使用了相同的版本号 %d", name, other, version)
		}
		seen[version] = name

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", name, err)
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{
			version:    version,
			name:       name,
			checksum:   hex.EncodeToString(sum[:]),
			statements: splitSQLStatements(string(content)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		prefix = strings.TrimSuffix(name, ".sql")
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("迁移文件名 %s 缺少数字版本前缀", name)
	}
	return version, nil
}

// splitSQLStatements 按分号切分语句，忽略空语句与 -- 注释行。
func splitSQLStatements(content string) []string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var statements []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}
