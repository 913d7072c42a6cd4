package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// QueryResult 一次 count(*) 查询的耗时与结果
//
// Err 不为空时是失败占位，Elapsed 和 Count 没有意义
type QueryResult struct {
	Elapsed time.Duration
	Count   int64
	Err     error
}

// OK 查询成功
func (r QueryResult) OK() bool {
	return r.Err == nil
}

// Average 成功查询的平均耗时，没有成功的查询时 ok 为 false
func Average(results []QueryResult) (avg time.Duration, ok bool) {
	var (
		total time.Duration
		n     int
	)
	for _, r := range results {
		if r.OK() {
			total += r.Elapsed
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / time.Duration(n), true
}

// SweepPoint 某个目标在某个并发数下的平均耗时
type SweepPoint struct {
	Target  string
	Workers int
	Valid   int
	Average time.Duration
	OK      bool
}

// Harness 并发查询压测
type Harness struct {
	Table  string
	Open   Opener
	Logger *slog.Logger
}

// NewHarness 使用配置创建 Harness
func NewHarness(cfg *Config, logger *slog.Logger) *Harness {
	return &Harness{
		Table:  cfg.Table,
		Open:   NewDB,
		Logger: logger,
	}
}

// QueryTest 打开一个新连接，执行一次 count(*)，只统计查询本身的耗时
func (h *Harness) QueryTest(ctx context.Context, t Target) (QueryResult, error) {
	db, err := h.Open(ctx, t)
	if err != nil {
		h.Logger.Error("query test failed", slog.String("target", t.String()), slog.Any("err", err))
		return QueryResult{Err: err}, err
	}
	defer db.Close()

	startTime := time.Now()
	n, err := CountRows(ctx, db, h.Table)
	if err != nil {
		h.Logger.Error("query test failed", slog.String("target", t.String()), slog.Any("err", err))
		return QueryResult{Err: err}, err
	}

	return QueryResult{
		Elapsed: time.Since(startTime),
		Count:   n,
	}, nil
}

// Run 同时启动 workers 个 goroutine，每个各自连接并查询一次
//
// 结果按完成顺序返回，长度总是 workers；单个 worker 失败记为占位结果，
// 不影响其它 worker
func (h *Harness) Run(ctx context.Context, t Target, workers int) []QueryResult {
	ch := make(chan QueryResult, workers)

	for i := 0; i < workers; i++ {
		go func() {
			r, err := h.QueryTest(ctx, t)
			if err != nil {
				h.Logger.Error("concurrent query failed", slog.String("target", t.String()), slog.Any("err", err))
			}
			ch <- r
		}()
	}

	results := make([]QueryResult, 0, workers)
	for i := 0; i < workers; i++ {
		results = append(results, <-ch)
	}
	return results
}

// Sweep 按并发数从小到大依次压测每个目标，记录平均耗时
//
// ctx 取消时停止并返回已完成的部分
func (h *Harness) Sweep(ctx context.Context, targets []Target, counts []int) ([]SweepPoint, error) {
	points := make([]SweepPoint, 0, len(targets)*len(counts))

	for _, workers := range counts {
		h.Logger.Info("running concurrent queries", slog.Int("workers", workers))

		for _, t := range targets {
			if err := ctx.Err(); err != nil {
				return points, err
			}

			results := h.Run(ctx, t, workers)
			p := SweepPoint{Target: t.Name, Workers: workers}
			for _, r := range results {
				if r.OK() {
					p.Valid++
				}
			}
			p.Average, p.OK = Average(results)
			points = append(points, p)

			if !p.OK {
				h.Logger.Warn("no valid concurrency results",
					slog.String("target", t.String()),
					slog.Int("workers", workers))
				continue
			}
			h.Logger.Info("average query time",
				slog.String("target", t.String()),
				slog.Int("workers", workers),
				slog.String("avg", formatSeconds(p.Average)))
		}
	}
	return points, nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.4fs", d.Seconds())
}
