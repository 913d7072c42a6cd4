package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc.org/sqlite 不在 sqlx 的默认列表里
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

func isSQLite(driver string) bool {
	return driver == "sqlite" || driver == "sqlite3"
}

// Pragma sqlite数据库配置
//
// https://www.sqlite.org/pragma.html
type Pragma struct {
	BusyTimeout int    `yaml:"busy_timeout,omitempty"`
	CacheSize   int    `yaml:"cache_size,omitempty"`
	JournalMode string `yaml:"journal_mode,omitempty"`
	Synchronous string `yaml:"synchronous,omitempty"`
	TempStore   string `yaml:"temp_store,omitempty"`
}

func (p Pragma) pairs() [][2]string {
	var kv [][2]string
	add := func(k, v string) {
		if v != "" && v != "0" {
			kv = append(kv, [2]string{k, v})
		}
	}

	add("busy_timeout", strconv.Itoa(p.BusyTimeout))
	add("cache_size", strconv.Itoa(p.CacheSize))
	add("journal_mode", p.JournalMode)
	add("synchronous", p.Synchronous)
	add("temp_store", p.TempStore)
	return kv
}

// encode 两个驱动的 DSN 参数格式不同
//
//	sqlite3: _journal_mode=WAL
//	sqlite:  _pragma=journal_mode(WAL)
func (p Pragma) encode(driver string) string {
	val := url.Values{}
	for _, kv := range p.pairs() {
		switch driver {
		case "sqlite3":
			val.Set("_"+kv[0], kv[1])
		case "sqlite":
			val.Add("_pragma", fmt.Sprintf("%s(%s)", kv[0], kv[1]))
		}
	}

	result, _ := url.QueryUnescape(val.Encode())
	return result
}

type sqliteDialect struct {
	driver string
}

func (d sqliteDialect) dsn(t Target) string {
	if t.DSN != "" {
		return t.DSN
	}
	if q := t.Pragma.encode(d.driver); q != "" {
		return t.File + "?" + q
	}
	return t.File
}

// sqlite 没有严格类型，用 CHECK 约束拒绝无法转换的金额和笔数，
// 与 postgresql 插入失败的行为保持一致
func (sqliteDialect) createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE,
		domain VARCHAR(255),
		location VARCHAR(255),
		value NUMERIC CHECK (typeof(value) IN ('integer', 'real')),
		transaction_count INT CHECK (typeof(transaction_count) = 'integer')
	)`, table)
}

func (sqliteDialect) truncate(table string) string {
	return "DELETE FROM " + table
}
