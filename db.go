package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// dialect 不同数据库的 DSN 与 SQL 差异
type dialect interface {
	dsn(t Target) string
	createTable(table string) string
	truncate(table string) string
}

func dialectFor(driver string) (dialect, error) {
	switch {
	case driver == driverPGX:
		return pgsqlDialect{}, nil
	case isSQLite(driver):
		return sqliteDialect{driver: driver}, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

// DB 数据库连接
//
// 每个 DB 只持有一个连接，压测时每个 worker 独占一个 DB
type DB struct {
	*sqlx.DB

	dialect dialect
}

// namedExecer *sqlx.DB 与 *sqlx.Tx 都满足
type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Opener 打开目标数据库，测试中可替换
type Opener func(ctx context.Context, t Target) (*DB, error)

// NewDB 创建数据库连接
//
//	driver=pgx use github.com/jackc/pgx/v4/stdlib
//	driver=sqlite use modernc.org/sqlite
//	driver=sqlite3 use github.com/mattn/go-sqlite3
func NewDB(ctx context.Context, t Target) (*DB, error) {
	d, err := dialectFor(t.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, t.Driver, d.dsn(t))
	if err != nil {
		return nil, fmt.Errorf("connect %s, %w", t, err)
	}
	db.SetMaxOpenConns(1)

	return &DB{
		DB:      db,
		dialect: d,
	}, nil
}

// CreateTable 建表，表已存在时不做任何修改
func CreateTable(ctx context.Context, db *DB, table string) error {
	if _, err := db.ExecContext(ctx, db.dialect.createTable(table)); err != nil {
		return fmt.Errorf("create table %s, %w", table, err)
	}
	return nil
}

// CountRows select count(*)
func CountRows(ctx context.Context, db *DB, table string) (int64, error) {
	var n int64
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, err
	}
	return n, nil
}
