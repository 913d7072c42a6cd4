package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound 配置文件不存在
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName 默认配置文件
const ConfigFileName = "txnbench.yaml"

const envPrefix = "TXNBENCH_"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Target 一个数据库目标
type Target struct {
	Name     string `yaml:"name"`
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`

	// DSN 非空时直接使用，忽略上面的字段
	DSN string `yaml:"dsn,omitempty"`

	// sqlite
	File   string `yaml:"file,omitempty"`
	Pragma Pragma `yaml:"pragma,omitempty"`
}

// String 日志中使用的目标标识
func (t Target) String() string {
	switch {
	case isSQLite(t.Driver) && t.File != "":
		return fmt.Sprintf("%s(%s)", t.Name, t.File)
	case t.Host != "":
		return fmt.Sprintf("%s(%s)", t.Name, t.Host)
	}
	return t.Name
}

func (t Target) validate() error {
	if t.Name == "" {
		return errors.New("target name is required")
	}

	switch {
	case t.Driver == driverPGX:
		if t.DSN == "" && t.Host == "" {
			return fmt.Errorf("target %s: host is required, set %s or use --target to skip it",
				t.Name, envPrefix+strings.ToUpper(t.Name)+"_HOST")
		}
	case isSQLite(t.Driver):
		if t.DSN == "" && t.File == "" {
			return fmt.Errorf("target %s: file is required", t.Name)
		}
	default:
		return fmt.Errorf("target %s: unsupported driver %q", t.Name, t.Driver)
	}
	return nil
}

// Config 运行配置
type Config struct {
	CSVPath       string   `yaml:"csv"`
	Table         string   `yaml:"table"`
	RowCap        int      `yaml:"row_cap"`
	ProgressEvery int      `yaml:"progress_every"`
	LogFile       string   `yaml:"log_file"`
	WorkerCounts  []int    `yaml:"worker_counts"`
	Targets       []Target `yaml:"targets"`
}

// DefaultConfig 默认配置，local/remote 两个 postgresql 目标
func DefaultConfig() *Config {
	return &Config{
		CSVPath:       "bankdataset.csv",
		Table:         "bank_transactions",
		RowCap:        10000,
		ProgressEvery: 1000,
		LogFile:       "logs/data_pipeline.log",
		WorkerCounts:  []int{1, 2, 3, 5, 8, 10, 15, 20, 30, 50},
		Targets: []Target{
			{
				Name:     "local",
				Driver:   driverPGX,
				Host:     "localhost",
				Port:     5432,
				Database: "postgres",
				User:     "postgres",
				Password: "postgres",
			},
			{
				Name:     "remote",
				Driver:   driverPGX,
				Port:     5432,
				Database: "postgres",
				User:     "postgres",
			},
		},
	}
}

// LoadConfig 读取 yaml 配置并覆盖默认值
//
// 文件不存在时返回默认配置和 ErrConfigNotFound
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read config, %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s, %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv 使用环境变量覆盖配置
//
//	TXNBENCH_CSV, TXNBENCH_TABLE, TXNBENCH_ROW_CAP
//	TXNBENCH_<TARGET>_HOST|PORT|DATABASE|USER|PASSWORD|SSLMODE|DSN|FILE
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(envPrefix + "CSV"); v != "" {
		c.CSVPath = v
	}
	if v := getenv(envPrefix + "TABLE"); v != "" {
		c.Table = v
	}
	if v := getenv(envPrefix + "ROW_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sROW_CAP, %w", envPrefix, err)
		}
		c.RowCap = n
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		key := func(field string) string {
			return envPrefix + strings.ToUpper(t.Name) + "_" + field
		}

		for field, dst := range map[string]*string{
			"HOST":     &t.Host,
			"DATABASE": &t.Database,
			"USER":     &t.User,
			"PASSWORD": &t.Password,
			"SSLMODE":  &t.SSLMode,
			"DSN":      &t.DSN,
			"FILE":     &t.File,
		} {
			if v := getenv(key(field)); v != "" {
				*dst = v
			}
		}

		if v := getenv(key("PORT")); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s, %w", key("PORT"), err)
			}
			t.Port = port
		}
	}
	return nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.CSVPath == "" {
		return errors.New("csv path is required")
	}
	if !identRe.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if c.RowCap < 1 {
		return fmt.Errorf("row cap must be positive, got %d", c.RowCap)
	}
	for _, n := range c.WorkerCounts {
		if n < 1 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
	}
	if len(c.Targets) == 0 {
		return errors.New("no database targets configured")
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if err := t.validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Select 按名称挑选目标，names 为空时返回全部
func (c *Config) Select(names []string) ([]Target, error) {
	if len(names) == 0 {
		return c.Targets, nil
	}

	result := make([]Target, 0, len(names))
	for _, name := range names {
		var found bool
		for _, t := range c.Targets {
			if t.Name == name {
				result = append(result, t)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown target %q", name)
		}
	}
	return result, nil
}
