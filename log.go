package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// newLogger 同时输出到 console 和日志文件（追加写入）
//
// 每次运行带一个 run id，方便在日志文件里区分
func newLogger(console io.Writer, path string, verbose bool) (*slog.Logger, io.Closer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("make log dir, %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file, %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(io.MultiWriter(console, f), &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(slog.String("run", uuid.NewString())), f, nil
}
