package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
)

// Record 一条交易记录，所有字段按原文传给数据库
type Record struct {
	Date             string `db:"date"`
	Domain           string `db:"domain"`
	Location         string `db:"location"`
	Value            string `db:"value"`
	TransactionCount string `db:"transaction_count"`
}

// csv 表头
var csvColumns = []string{"Date", "Domain", "Location", "Value", "Transaction_count"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func insertRecord(ctx context.Context, ex namedExecer, table string, r *Record) error {
	_, err := ex.NamedExecContext(ctx, `
		INSERT INTO `+table+` (date, domain, location, value, transaction_count)
		VALUES (:date, :domain, :location, :value, :transaction_count)
	`, r)
	return err
}

// newCSVReader 跳过 utf-8 BOM，允许未加引号的字段中出现 "
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM)) //nolint:errcheck
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	return cr
}

// RecordReader 按表头读取交易记录
type RecordReader struct {
	r   *csv.Reader
	idx []int
}

// NewRecordReader 读取并检查表头，列的顺序不限，多余的列忽略
func NewRecordReader(r io.Reader) (*RecordReader, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header, %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}

	idx := make([]int, len(csvColumns))
	for i, name := range csvColumns {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		idx[i] = p
	}

	return &RecordReader{r: cr, idx: idx}, nil
}

// Read 读取下一条记录，结束时返回 io.EOF
func (rr *RecordReader) Read() (*Record, error) {
	row, err := rr.r.Read()
	if err != nil {
		return nil, err
	}

	return &Record{
		Date:             row[rr.idx[0]],
		Domain:           row[rr.idx[1]],
		Location:         row[rr.idx[2]],
		Value:            row[rr.idx[3]],
		TransactionCount: row[rr.idx[4]],
	}, nil
}

type fakeTransaction struct {
	Timestamp int64  `faker:"unix_time"`
	Domain    string `faker:"oneof: RESTRAUNT, INVESTMENTS, RETAIL, MEDICAL, EDUCATION, INTERNATIONAL, PUBLIC"`
	Location  string `faker:"oneof: Bhuj, Mumbai, Delhi, Kolkata, Chennai, Pune, Surat, Ahmedabad"`
	Value     int    `faker:"boundary_start=100, boundary_end=1000000"`
	Count     int    `faker:"boundary_start=1, boundary_end=5000"`
}

func fakeRecord() (*Record, error) {
	f := &fakeTransaction{}
	if err := faker.FakeData(f); err != nil {
		return nil, err
	}

	return &Record{
		Date:             time.Unix(f.Timestamp, 0).UTC().Format("1/2/2006"),
		Domain:           f.Domain,
		Location:         f.Location,
		Value:            strconv.Itoa(f.Value),
		TransactionCount: strconv.Itoa(f.Count),
	}, nil
}

// GenerateCSV 写入 n 条随机交易记录
func GenerateCSV(w io.Writer, n int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r, err := fakeRecord()
		if err != nil {
			return fmt.Errorf("fake record, %w", err)
		}
		if err := cw.Write([]string{r.Date, r.Domain, r.Location, r.Value, r.TransactionCount}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
