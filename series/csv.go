package series

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"20060102",
	"2006/01/02",
}

// Header aliases, lowercase. Chinese names match the usual A-share exports.
var columnAliases = map[string][]string{
	"date":   {"date", "time", "datetime", "trade_date", "日期", "时间"},
	"open":   {"open", "开盘", "开盘价"},
	"high":   {"high", "最高", "最高价"},
	"low":    {"low", "最低", "最低价"},
	"close":  {"close", "收盘", "收盘价"},
	"volume": {"volume", "vol", "成交量"},
	"amount": {"amount", "turnover", "成交额"},
}

// LoadCSV reads a header-driven OHLCV CSV file and normalizes it.
func LoadCSV(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadCSV(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadCSV parses OHLCV rows from r and normalizes them. Date, open, high,
// low and close columns are required; volume and amount are optional.
func ReadCSV(r io.Reader) (Series, error) {
	bars, err := ReadBars(r)
	if err != nil {
		return nil, err
	}
	return Normalize(bars)
}

// ReadBars parses rows in file order without normalizing.
func ReadBars(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols := resolveColumns(header)
	for _, req := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[req]; !ok {
			return nil, &InvalidSeriesError{Index: -1, Field: req, Reason: "missing column"}
		}
	}

	var bars []Bar
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row++

		ts, err := parseDate(field(rec, cols["date"]))
		if err != nil {
			return nil, &InvalidSeriesError{Index: row, Field: "date", Reason: err.Error()}
		}

		b := Bar{Time: ts}
		for _, c := range []struct {
			name string
			dst  *float64
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}} {
			v, err := strconv.ParseFloat(field(rec, cols[c.name]), 64)
			if err != nil {
				return nil, &InvalidSeriesError{Index: row, Field: c.name, Reason: "non-numeric value"}
			}
			*c.dst = v
		}
		if i, ok := cols["volume"]; ok {
			b.Volume, _ = strconv.ParseFloat(field(rec, i), 64)
		}
		if i, ok := cols["amount"]; ok {
			b.Amount, _ = strconv.ParseFloat(field(rec, i), 64)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int, len(columnAliases))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for canon, aliases := range columnAliases {
			if _, seen := cols[canon]; seen {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[canon] = i
					break
				}
			}
		}
	}
	return cols
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
