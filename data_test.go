package main

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReader(t *testing.T) {
	cases := []struct {
		Name  string
		Input string
	}{
		{
			Name:  "plain",
			Input: "Date,Domain,Location,Value,Transaction_count\n1/1/2022,RESTRAUNT,Bhuj,365554,1932\n",
		},
		{
			Name:  "bom",
			Input: "\xEF\xBB\xBFDate,Domain,Location,Value,Transaction_count\n1/1/2022,RESTRAUNT,Bhuj,365554,1932\n",
		},
		{
			Name:  "reordered and extra columns",
			Input: "Location,Extra,Transaction_count,Date,Value,Domain\nBhuj,x,1932,1/1/2022,365554,RESTRAUNT\n",
		},
	}

	for _, v := range cases {
		t.Run(v.Name, func(t *testing.T) {
			rd, err := NewRecordReader(strings.NewReader(v.Input))
			require.NoError(t, err)

			r, err := rd.Read()
			require.NoError(t, err)
			assert.Equal(t, &Record{
				Date:             "1/1/2022",
				Domain:           "RESTRAUNT",
				Location:         "Bhuj",
				Value:            "365554",
				TransactionCount: "1932",
			}, r)

			_, err = rd.Read()
			assert.True(t, errors.Is(err, io.EOF))
		})
	}
}

func TestRecordReader_BareQuote(t *testing.T) {
	rd, err := NewRecordReader(strings.NewReader("Date,Domain,Location,Value,Transaction_count\n1/1/2022,RETAIL,Bhuj \"East\",1,1\n"))
	require.NoError(t, err)

	r, err := rd.Read()
	require.NoError(t, err)
	assert.Equal(t, `Bhuj "East"`, r.Location)
	assert.Equal(t, "1", r.TransactionCount)
}

func TestRecordReader_BadHeader(t *testing.T) {
	_, err := NewRecordReader(strings.NewReader(""))
	assert.EqualError(t, err, "missing header row")

	_, err = NewRecordReader(strings.NewReader("Date,Domain,Location,Value\n"))
	assert.EqualError(t, err, `missing column "Transaction_count"`)
}

func TestGenerateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateCSV(&buf, 50))

	rd, err := NewRecordReader(&buf)
	require.NoError(t, err)

	var n int
	for {
		r, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		n++

		_, err = time.Parse("1/2/2006", r.Date)
		assert.NoError(t, err, r.Date)
		assert.NotEmpty(t, r.Domain)
		assert.NotEmpty(t, r.Location)

		value, err := strconv.Atoi(r.Value)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, value, 100)

		count, err := strconv.Atoi(r.TransactionCount)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)
	}
	assert.Equal(t, 50, n)
}
