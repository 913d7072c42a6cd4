package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slog"
)

// LoadErrorKind 导入失败的阶段
type LoadErrorKind int

const (
	ConnectionFailed LoadErrorKind = iota + 1
	ReadFailed
	TruncateFailed
	InsertFailed
	CommitFailed
)

func (k LoadErrorKind) String() string {
	switch k {
	case ConnectionFailed:
		return "connection failed"
	case ReadFailed:
		return "read csv failed"
	case TruncateFailed:
		return "truncate failed"
	case InsertFailed:
		return "insert failed"
	case CommitFailed:
		return "commit failed"
	}
	return fmt.Sprintf("LoadErrorKind(%d)", int(k))
}

// LoadError 导入失败，整个事务已回滚
//
// Row 为出错记录的下标（从 0 开始，不含表头），与具体记录无关时为 -1
type LoadError struct {
	Kind   LoadErrorKind
	Target string
	Row    int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("load %s: %s at row %d: %v", e.Target, e.Kind, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Target, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader 清空目标表后逐行导入 csv
type Loader struct {
	Table         string
	RowCap        int
	ProgressEvery int
	Open          Opener
	Logger        *slog.Logger
}

// NewLoader 使用配置创建 Loader
func NewLoader(cfg *Config, logger *slog.Logger) *Loader {
	return &Loader{
		Table:         cfg.Table,
		RowCap:        cfg.RowCap,
		ProgressEvery: cfg.ProgressEvery,
		Open:          NewDB,
		Logger:        logger,
	}
}

// Load 导入 csv，返回插入的行数
//
// truncate 与所有 insert 在同一个事务中，任何一步失败都会回滚，
// 表中保留导入前的数据
func (l *Loader) Load(ctx context.Context, t Target, csvPath string) (n int, err error) {
	log := l.Logger.With(slog.String("target", t.String()), slog.String("table", l.Table))

	fail := func(kind LoadErrorKind, row int, cause error) (int, error) {
		lerr := &LoadError{Kind: kind, Target: t.Name, Row: row, Err: cause}
		log.Error("load csv failed", slog.Any("err", lerr))
		return 0, lerr
	}

	db, err := l.Open(ctx, t)
	if err != nil {
		return fail(ConnectionFailed, -1, err)
	}
	defer db.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		return fail(ReadFailed, -1, err)
	}
	defer f.Close()

	rd, err := NewRecordReader(f)
	if err != nil {
		return fail(ReadFailed, -1, fmt.Errorf("%s, %w", csvPath, err))
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fail(ConnectionFailed, -1, fmt.Errorf("begin, %w", err))
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("rollback failed", slog.Any("err", rbErr))
		}
	}()

	if _, err = tx.ExecContext(ctx, db.dialect.truncate(l.Table)); err != nil {
		return fail(TruncateFailed, -1, err)
	}

	for n < l.RowCap {
		var r *Record
		r, err = rd.Read()
		if errors.Is(err, io.EOF) {
			err = nil
			break
		}
		if err != nil {
			return fail(ReadFailed, n, err)
		}

		if err = insertRecord(ctx, tx, l.Table, r); err != nil {
			return fail(InsertFailed, n, err)
		}
		n++

		if l.ProgressEvery > 0 && n%l.ProgressEvery == 0 {
			log.Info("inserting rows", slog.Int("rows", n))
		}
	}

	if err = tx.Commit(); err != nil {
		return fail(CommitFailed, -1, err)
	}

	log.Info("inserted rows", slog.Int("rows", n))
	return n, nil
}
