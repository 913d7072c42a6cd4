package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// ColumnKind 推断出的列类型
type ColumnKind string

const (
	KindInt   ColumnKind = "int64"
	KindFloat ColumnKind = "float64"
	KindText  ColumnKind = "object"
)

// NumericStats 数值列统计
type NumericStats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// ColumnProfile 单列概况
type ColumnProfile struct {
	Name    string
	Kind    ColumnKind
	Missing int
	Stats   *NumericStats
}

// Profile csv 数据概况
type Profile struct {
	Rows       int
	Columns    []ColumnProfile
	Duplicates int
}

// ProfileCSV 读取整个 csv，统计行列数、缺失值、重复行和数值列分布
func ProfileCSV(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return profileReader(f)
}

func profileReader(r io.Reader) (*Profile, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header, %w", err)
	}

	values := make([][]string, len(header))
	seen := make(map[string]struct{})
	p := &Profile{}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d, %w", p.Rows, err)
		}

		key := strings.Join(row, "\x00")
		if _, ok := seen[key]; ok {
			p.Duplicates++
		} else {
			seen[key] = struct{}{}
		}

		for i, v := range row {
			values[i] = append(values[i], v)
		}
		p.Rows++
	}

	p.Columns = make([]ColumnProfile, len(header))
	for i, name := range header {
		p.Columns[i] = profileColumn(strings.TrimSpace(name), values[i])
	}
	return p, nil
}

func profileColumn(name string, values []string) ColumnProfile {
	c := ColumnProfile{Name: name, Kind: KindInt}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			c.Missing++
			continue
		}
		if c.Kind == KindText {
			continue
		}

		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			c.Kind = KindFloat
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.Kind = KindText
			continue
		}
		nums = append(nums, f)
	}

	// 有缺失值的整数列按浮点处理
	if c.Kind == KindInt && c.Missing > 0 {
		c.Kind = KindFloat
	}
	if c.Kind != KindText && len(nums) > 0 {
		c.Stats = describe(nums)
	}
	return c
}

func describe(nums []float64) *NumericStats {
	slices.Sort(nums)

	var sum float64
	for _, v := range nums {
		sum += v
	}
	mean := sum / float64(len(nums))

	var sq float64
	for _, v := range nums {
		sq += (v - mean) * (v - mean)
	}
	std := math.NaN()
	if len(nums) > 1 {
		std = math.Sqrt(sq / float64(len(nums)-1))
	}

	return &NumericStats{
		Count: len(nums),
		Mean:  mean,
		Std:   std,
		Min:   nums[0],
		P25:   quantile(nums, 0.25),
		P50:   quantile(nums, 0.5),
		P75:   quantile(nums, 0.75),
		Max:   nums[len(nums)-1],
	}
}

// quantile 线性插值，nums 已排序
func quantile(nums []float64, q float64) float64 {
	pos := q * float64(len(nums)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return nums[lo] + (nums[hi]-nums[lo])*(pos-float64(lo))
}

// Log 输出概况
func (p *Profile) Log(logger *slog.Logger) {
	logger.Info("=== EDA START ===")
	logger.Info("dataframe shape", slog.Int("rows", p.Rows), slog.Int("columns", len(p.Columns)))

	for _, c := range p.Columns {
		logger.Info("column",
			slog.String("name", c.Name),
			slog.String("dtype", string(c.Kind)),
			slog.Int("missing", c.Missing))
	}
	logger.Info("duplicate rows", slog.Int("count", p.Duplicates))

	for _, c := range p.Columns {
		if c.Stats == nil {
			continue
		}
		s := c.Stats
		logger.Info("describe",
			slog.String("name", c.Name),
			slog.Int("count", s.Count),
			slog.Float64("mean", s.Mean),
			slog.Float64("std", s.Std),
			slog.Float64("min", s.Min),
			slog.Float64("25%", s.P25),
			slog.Float64("50%", s.P50),
			slog.Float64("75%", s.P75),
			slog.Float64("max", s.Max))
	}
	logger.Info("=== EDA END ===")
}
