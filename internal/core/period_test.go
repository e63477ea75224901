package core

import (
	"testing"
	"time"
)

func TestPeriodBounds(t *testing.T) {
	cases := []struct {
		p       Period
		lastDay int
	}{
		{Period{2025, 1}, 31},
		{Period{2025, 2}, 28},
		{Period{2024, 2}, 29},
		{Period{2025, 4}, 30},
		{Period{2025, 12}, 31},
	}
	for _, tc := range cases {
		if got := tc.p.Start(); got.Day() != 1 || int(got.Month()) != tc.p.Month {
			t.Fatalf("%s start = %s", tc.p, got)
		}
		end := tc.p.End()
		if end.Day() != tc.lastDay || int(end.Month()) != tc.p.Month || end.Year() != tc.p.Year {
			t.Fatalf("%s end = %s, want day %d", tc.p, end, tc.lastDay)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-03")
	if err != nil || p != (Period{2024, 3}) {
		t.Fatalf("got %v (err=%v)", p, err)
	}
	for _, bad := range []string{"2024-13", "2024-3", "24-03", "march", ""} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestPeriodAddMonths(t *testing.T) {
	p := Period{2025, 1}
	if got := p.Previous(); got != (Period{2024, 12}) {
		t.Fatalf("Previous() = %v", got)
	}
	if got := p.AddMonths(-5); got != (Period{2024, 8}) {
		t.Fatalf("AddMonths(-5) = %v", got)
	}
	if got := p.AddMonths(13); got != (Period{2026, 2}) {
		t.Fatalf("AddMonths(13) = %v", got)
	}
	if got := PeriodOf(time.Date(2025, 7, 31, 23, 0, 0, 0, time.UTC)).String(); got != "2025-07" {
		t.Fatalf("String() = %q", got)
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{2025, 2}
	r := p.Range()
	if !r.Contains(NewDate(2025, 2, 1)) || !r.Contains(NewDate(2025, 2, 28)) {
		t.Fatalf("range should include both bounds")
	}
	if r.Contains(NewDate(2025, 3, 1)) || r.Contains(NewDate(2025, 1, 31)) {
		t.Fatalf("range should exclude neighbours")
	}
	if !p.Contains(NewDate(2025, 2, 14)) {
		t.Fatalf("Contains failed")
	}
}
