package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

// app 一次命令执行需要的配置与日志
type app struct {
	cfg     *Config
	targets []Target
	logger  *slog.Logger
	closer  io.Closer

	// open 建表、导入、压测共用的连接方式
	open Opener
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txnbench",
		Short: "Load bank transactions into databases and benchmark count(*) under concurrency",
		Long: `txnbench loads a bank transactions csv into a table on every configured
target (truncating it first), then measures the average latency of
SELECT COUNT(*) with 1, 2, 3, 5, 8, 10, 15, 20, 30 and 50 concurrent workers.

Targets are read from txnbench.yaml, .env and TXNBENCH_* environment variables.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", ConfigFileName, "config file")
	flags.String("csv", "", "csv file to load")
	flags.String("log-file", "", "append logs to this file")
	flags.StringSlice("target", nil, "only use these targets")
	flags.Int("cap", 0, "max rows to load")
	flags.BoolP("verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Profile the csv, load every target, then run the benchmark sweep",
			Args:  cobra.NoArgs,
			RunE:  withApp(runPipeline),
		},
		&cobra.Command{
			Use:   "load",
			Short: "Create the table if needed and load the csv into every target",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app) error {
				if err := createTables(ctx, a); err != nil {
					return err
				}
				return loadTargets(ctx, a)
			}),
		},
		&cobra.Command{
			Use:   "bench",
			Short: "Run the single query test and the concurrent sweep",
			Args:  cobra.NoArgs,
			RunE:  withApp(runBench),
		},
		&cobra.Command{
			Use:   "profile",
			Short: "Log shape, missing values, duplicates and numeric stats of the csv",
			Args:  cobra.NoArgs,
			RunE:  withApp(runProfile),
		},
		newGenerateCmd(),
	)
	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Write a csv of random bank transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := GenerateCSV(f, rows); err != nil {
				return errors.Join(err, f.Close())
			}
			return f.Close()
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 1000, "number of rows")
	return cmd
}

func withApp(fn func(context.Context, *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return fn(ctx, a)
	}
}

func newApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := LoadConfig(path)
	if err != nil && !(errors.Is(err, ErrConfigNotFound) && !flags.Changed("config")) {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env, %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("csv"); v != "" {
		cfg.CSVPath = v
	}
	if v, _ := flags.GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v, _ := flags.GetInt("cap"); v != 0 {
		cfg.RowCap = v
	}

	names, _ := flags.GetStringSlice("target")
	if cfg.Targets, err = cfg.Select(names); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}

	verbose, _ := flags.GetBool("verbose")
	logger, closer, err := newLogger(os.Stderr, cfg.LogFile, verbose)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	return &app{
		cfg:     cfg,
		targets: cfg.Targets,
		logger:  logger,
		closer:  closer,
		open:    NewDB,
	}, nil
}

func runPipeline(ctx context.Context, a *app) error {
	if err := runProfile(ctx, a); err != nil {
		return err
	}
	if err := createTables(ctx, a); err != nil {
		return err
	}
	if err := loadTargets(ctx, a); err != nil {
		return err
	}
	return runBench(ctx, a)
}

func runProfile(_ context.Context, a *app) error {
	a.logger.Info("starting EDA", slog.String("file", a.cfg.CSVPath))

	p, err := ProfileCSV(a.cfg.CSVPath)
	if err != nil {
		a.logger.Error("EDA failed", slog.String("file", a.cfg.CSVPath), slog.Any("err", err))
		return err
	}
	p.Log(a.logger)
	return nil
}

func createTables(ctx context.Context, a *app) error {
	for _, t := range a.targets {
		if err := createTableWith(ctx, a.open, t, a.cfg.Table); err != nil {
			a.logger.Error("create table failed",
				slog.String("target", t.String()),
				slog.String("table", a.cfg.Table),
				slog.Any("err", err))
			return err
		}
		a.logger.Info("table checked/created", slog.String("target", t.String()), slog.String("table", a.cfg.Table))
	}
	return nil
}

func createTable(ctx context.Context, t Target, table string) error {
	return createTableWith(ctx, NewDB, t, table)
}

func createTableWith(ctx context.Context, open Opener, t Target, table string) error {
	db, err := open(ctx, t)
	if err != nil {
		return err
	}
	defer db.Close()

	return CreateTable(ctx, db, table)
}

func loadTargets(ctx context.Context, a *app) error {
	loader := NewLoader(a.cfg, a.logger)
	loader.Open = a.open

	for _, t := range a.targets {
		startTime := time.Now()
		n, err := loader.Load(ctx, t, a.cfg.CSVPath)
		if err != nil {
			return err
		}
		a.logger.Info("loaded rows",
			slog.String("target", t.String()),
			slog.Int("rows", n),
			slog.String("elapsed", formatSeconds(time.Since(startTime))))
	}
	return nil
}

func runBench(ctx context.Context, a *app) error {
	h := NewHarness(a.cfg, a.logger)
	h.Open = a.open

	for _, t := range a.targets {
		r, err := h.QueryTest(ctx, t)
		if err != nil {
			return err
		}
		a.logger.Info("single query",
			slog.String("target", t.String()),
			slog.String("elapsed", formatSeconds(r.Elapsed)),
			slog.Int64("rows", r.Count))
	}

	_, err := h.Sweep(ctx, a.targets, a.cfg.WorkerCounts)
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
