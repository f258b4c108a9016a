package series

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestNormalizeEmpty(t *testing.T) {
	s, err := Normalize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty series, got %d bars", s.Len())
	}
}

func TestNormalizeSortsAndKeepsLastDuplicate(t *testing.T) {
	in := []Bar{
		{Time: day(2), Open: 3, High: 3, Low: 3, Close: 3},
		{Time: day(0), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: day(1), Open: 2, High: 2, Low: 2, Close: 2},
		{Time: day(0), Open: 9, High: 9, Low: 9, Close: 9},
	}
	s, err := Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 bars, got %d", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			t.Fatalf("bars not strictly ascending at %d", i)
		}
	}
	if s[0].Close != 9 {
		t.Fatalf("duplicate should keep last write, got close=%v", s[0].Close)
	}
	if in[0].Time != day(2) {
		t.Fatalf("input slice was mutated")
	}
}

func TestNormalizeRejectsNaN(t *testing.T) {
	_, err := Normalize([]Bar{{Time: day(0), Open: 1, High: math.NaN(), Low: 1, Close: 1}})
	var ise *InvalidSeriesError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidSeriesError, got %v", err)
	}
	if ise.Field != "high" || ise.Index != 0 {
		t.Fatalf("unexpected error detail: %+v", ise)
	}
}

func TestBetweenAndIndex(t *testing.T) {
	var bars []Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, Bar{Time: day(i), Open: 1, High: 1, Low: 1, Close: float64(i)})
	}
	s, _ := Normalize(bars)

	if got := s.IndexAtOrAfter(day(3)); got != 3 {
		t.Fatalf("IndexAtOrAfter = %d, want 3", got)
	}
	w := s.Between(day(2), day(5))
	if w.Len() != 4 || w[0].Close != 2 || w[3].Close != 5 {
		t.Fatalf("Between returned %d bars, first=%v", w.Len(), w[0].Close)
	}
	if s.Between(time.Time{}, time.Time{}).Len() != 10 {
		t.Fatalf("zero bounds should be unbounded")
	}
	if s.Between(day(20), time.Time{}).Len() != 0 {
		t.Fatalf("range past the end should be empty")
	}
	if s.Slice(8, 100).Len() != 2 {
		t.Fatalf("Slice should clamp")
	}
}

func TestReadCSV(t *testing.T) {
	data := "日期,开盘,最高,最低,收盘,成交量,成交额\n" +
		"2024-01-03,10.2,10.8,10.1,10.5,1000,10500\n" +
		"2024-01-02,10.0,10.3,9.9,10.2,900,9180\n" +
		"20240104,10.5,10.6,10.0,10.1,800,8080\n"
	s, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 bars, got %d", s.Len())
	}
	if s[0].Close != 10.2 || s[2].Amount != 8080 {
		t.Fatalf("unexpected parse: %+v", s)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,open,high,close\n2024-01-02,1,2,1.5\n"))
	var ise *InvalidSeriesError
	if !errors.As(err, &ise) || ise.Field != "low" {
		t.Fatalf("expected missing low column error, got %v", err)
	}
}
