package csv

import (
	"errors"
	"strings"
	"testing"
	"time"

	"backtest-systemv1/internal/model"
)

func TestParse_HeaderMapping(t *testing.T) {
	// Columns reordered and mixed-case; extra column ignored.
	in := strings.Join([]string{
		"Close,DATE,open,Adj Close,High,low,Volume",
		"105.5,2026-01-02,100,105,106,99.5,12000",
		"107,2026-01-05,105.5,107,108,104,9000",
	}, "\n")

	s, err := Parse(strings.NewReader(in), "TEST")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("parsed %d bars, want 2", s.Len())
	}

	b := s.Bars[0]
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if !b.TS.Equal(want) {
		t.Errorf("ts = %s, want %s", b.TS, want)
	}
	if b.Open != 100 || b.High != 106 || b.Low != 99.5 || b.Close != 105.5 || b.Volume != 12000 {
		t.Errorf("bar fields mismapped: %+v", b)
	}
}

func TestParse_VolumeOptional(t *testing.T) {
	in := "date,open,high,low,close\n2026-01-02,1,2,0.5,1.5\n"
	s, err := Parse(strings.NewReader(in), "TEST")
	if err != nil {
		t.Fatal(err)
	}
	if s.Bars[0].Volume != 0 {
		t.Errorf("missing volume column should parse as 0, got %v", s.Bars[0].Volume)
	}
}

func TestParse_RFC3339Dates(t *testing.T) {
	in := "date,open,high,low,close\n2026-01-02T09:30:00-05:00,1,2,0.5,1.5\n"
	s, err := Parse(strings.NewReader(in), "TEST")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 1, 2, 14, 30, 0, 0, time.UTC)
	if !s.Bars[0].TS.Equal(want) {
		t.Errorf("ts = %s, want %s normalized to UTC", s.Bars[0].TS, want)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	in := "date,open,high,low\n2026-01-02,1,2,0.5\n"
	_, err := Parse(strings.NewReader(in), "TEST")
	if err == nil || !strings.Contains(err.Error(), `missing column "close"`) {
		t.Errorf("want missing-column error, got %v", err)
	}
}

func TestParse_BadRowNamesLine(t *testing.T) {
	in := strings.Join([]string{
		"date,open,high,low,close",
		"2026-01-02,1,2,0.5,1.5",
		"2026-01-05,1,2,0.5,not-a-number",
	}, "\n")
	_, err := Parse(strings.NewReader(in), "TEST")
	if err == nil || !strings.Contains(err.Error(), "csv line 3") {
		t.Errorf("want error pointing at line 3, got %v", err)
	}
}

func TestParse_OutOfOrderDatesRejected(t *testing.T) {
	in := strings.Join([]string{
		"date,open,high,low,close",
		"2026-01-05,1,2,0.5,1.5",
		"2026-01-02,1,2,0.5,1.5",
	}, "\n")
	if _, err := Parse(strings.NewReader(in), "TEST"); !errors.Is(err, model.ErrInvalidSeries) {
		t.Errorf("want ErrInvalidSeries, got %v", err)
	}
}
