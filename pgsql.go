package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const driverPGX = "pgx"

type pgsqlDialect struct{}

func (pgsqlDialect) dsn(t Target) string {
	if t.DSN != "" {
		return t.DSN
	}

	port := t.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(port)),
		Path:   "/" + t.Database,
	}
	if t.User != "" {
		u.User = url.UserPassword(t.User, t.Password)
	}
	if t.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {t.SSLMode}}.Encode()
	}
	return u.String()
}

// 日期、金额等字段以文本传入，由 postgresql 完成类型转换
func (pgsqlDialect) createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		date DATE,
		domain VARCHAR(255),
		location VARCHAR(255),
		value NUMERIC,
		transaction_count INT
	)`, table)
}

func (pgsqlDialect) truncate(table string) string {
	return "TRUNCATE TABLE " + table
}
