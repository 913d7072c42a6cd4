package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bank_transactions", cfg.Table)
	assert.Equal(t, 10000, cfg.RowCap)
	assert.Equal(t, []int{1, 2, 3, 5, 8, 10, 15, 20, 30, 50}, cfg.WorkerCounts)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "local", cfg.Targets[0].Name)
	assert.Equal(t, "remote", cfg.Targets[1].Name)

	// remote 没有 host，需要通过配置补齐
	assert.ErrorContains(t, cfg.Validate(), "TXNBENCH_REMOTE_HOST")
}

func TestLoadConfig_NotFound(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFileName))
	assert.True(t, errors.Is(err, ErrConfigNotFound))
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
csv: data/bank.csv
row_cap: 500
worker_counts: [1, 4]
targets:
  - name: local
    driver: sqlite
    file: local.db
    pragma:
      journal_mode: WAL
  - name: remote
    driver: pgx
    host: db.example.com
    user: bench
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "data/bank.csv", cfg.CSVPath)
	assert.Equal(t, "bank_transactions", cfg.Table)
	assert.Equal(t, 500, cfg.RowCap)
	assert.Equal(t, []int{1, 4}, cfg.WorkerCounts)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, Target{Name: "local", Driver: "sqlite", File: "local.db", Pragma: Pragma{JournalMode: "WAL"}}, cfg.Targets[0])
	assert.Equal(t, "db.example.com", cfg.Targets[1].Host)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("row_cap: [1"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TXNBENCH_CSV":             "other.csv",
		"TXNBENCH_ROW_CAP":         "42",
		"TXNBENCH_REMOTE_HOST":     "rds.example.com",
		"TXNBENCH_REMOTE_PASSWORD": "secret",
		"TXNBENCH_REMOTE_PORT":     "6432",
		"TXNBENCH_LOCAL_SSLMODE":   "disable",
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "other.csv", cfg.CSVPath)
	assert.Equal(t, 42, cfg.RowCap)
	assert.Equal(t, "disable", cfg.Targets[0].SSLMode)
	assert.Equal(t, "localhost", cfg.Targets[0].Host)
	assert.Equal(t, "rds.example.com", cfg.Targets[1].Host)
	assert.Equal(t, "secret", cfg.Targets[1].Password)
	assert.Equal(t, 6432, cfg.Targets[1].Port)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "TXNBENCH_LOCAL_PORT" {
			return "five"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Targets[1].Host = "rds.example.com"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		Name   string
		Modify func(*Config)
	}{
		{Name: "empty csv", Modify: func(c *Config) { c.CSVPath = "" }},
		{Name: "bad table", Modify: func(c *Config) { c.Table = "bank; DROP TABLE x" }},
		{Name: "zero cap", Modify: func(c *Config) { c.RowCap = 0 }},
		{Name: "zero workers", Modify: func(c *Config) { c.WorkerCounts = []int{1, 0} }},
		{Name: "no targets", Modify: func(c *Config) { c.Targets = nil }},
		{Name: "unknown driver", Modify: func(c *Config) { c.Targets[0].Driver = "mysql" }},
		{Name: "duplicate target", Modify: func(c *Config) { c.Targets[1].Name = "local" }},
		{Name: "sqlite without file", Modify: func(c *Config) { c.Targets[0] = Target{Name: "local", Driver: "sqlite"} }},
		{Name: "unnamed target", Modify: func(c *Config) { c.Targets[0].Name = "" }},
	}

	for _, v := range cases {
		t.Run(v.Name, func(t *testing.T) {
			cfg := valid()
			v.Modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSelect(t *testing.T) {
	cfg := DefaultConfig()

	all, err := cfg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := cfg.Select([]string{"local"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "local", only[0].Name)

	_, err = cfg.Select([]string{"staging"})
	assert.Error(t, err)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "local(localhost)", DefaultConfig().Targets[0].String())
	assert.Equal(t, "remote", DefaultConfig().Targets[1].String())
	assert.Equal(t, "lite(a.db)", Target{Name: "lite", Driver: "sqlite", File: "a.db"}.String())
}
