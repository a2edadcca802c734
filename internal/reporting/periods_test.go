package reporting

import (
	"testing"
	"time"
)

func TestRangeForPeriod(t *testing.T) {
	// Mid-afternoon anchor so day boundaries are visible.
	now := time.Date(2026, 3, 15, 14, 30, 45, 0, time.UTC)

	t.Run("yesterday covers the full previous day", func(t *testing.T) {
		start, end := RangeForPeriod(PeriodYesterday, now)

		wantStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		if !start.Equal(wantStart) {
			t.Errorf("start = %v, want %v", start, wantStart)
		}
		if end.Day() != 14 || end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
			t.Errorf("end = %v, want end of March 14", end)
		}
		if !end.Before(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("end %v leaks into the next day", end)
		}
	})

	t.Run("today starts at midnight and ends now", func(t *testing.T) {
		start, end := RangeForPeriod(PeriodToday, now)
		if start.Hour() != 0 || start.Day() != 15 {
			t.Errorf("start = %v, want midnight March 15", start)
		}
		if !end.Equal(now) {
			t.Errorf("end = %v, want now", end)
		}
	})

	t.Run("lastMonth is the previous calendar month", func(t *testing.T) {
		start, end := RangeForPeriod(PeriodLastMonth, now)
		if start.Month() != time.February || start.Day() != 1 {
			t.Errorf("start = %v, want Feb 1", start)
		}
		if end.Month() != time.February || end.Day() != 28 {
			t.Errorf("end = %v, want end of Feb 28", end)
		}
	})

	t.Run("unknown period defaults to last30days", func(t *testing.T) {
		start, end := RangeForPeriod("bogus", now)
		if got, want := start, now.AddDate(0, 0, -30); !got.Equal(want) {
			t.Errorf("start = %v, want %v", got, want)
		}
		if !end.Equal(now) {
			t.Errorf("end = %v, want now", end)
		}
	})

	t.Run("last7days ends at now", func(t *testing.T) {
		start, end := RangeForPeriod(PeriodLast7, now)
		if got, want := start, now.AddDate(0, 0, -7); !got.Equal(want) {
			t.Errorf("start = %v, want %v", got, want)
		}
		if !end.Equal(now) {
			t.Errorf("end = %v, want now", end)
		}
	})
}

func TestBucketsForDaily(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	buckets := BucketsFor(GranularityDaily, 3, now)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}

	// Oldest first: day before yesterday, yesterday, today.
	wantDays := []int{13, 14, 15}
	for i, b := range buckets {
		if b.Start.Day() != wantDays[i] {
			t.Errorf("bucket %d starts on day %d, want %d", i, b.Start.Day(), wantDays[i])
		}
		if b.Start.Hour() != 0 {
			t.Errorf("bucket %d not day-aligned: %v", i, b.Start)
		}
		if got, want := b.End, b.Start.AddDate(0, 0, 1); !got.Equal(want) {
			t.Errorf("bucket %d end = %v, want %v", i, got, want)
		}
	}

	t.Run("windows are half-open", func(t *testing.T) {
		b := buckets[1] // March 14
		if !b.Contains(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
			t.Error("bucket must contain its start")
		}
		if b.Contains(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
			t.Error("bucket must not contain its end")
		}
	})
}

func TestBucketsForWeekly(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	buckets := BucketsFor(GranularityWeekly, 2, now)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if !buckets[1].End.Equal(now) {
		t.Errorf("latest bucket must end at now, got %v", buckets[1].End)
	}
	if !buckets[0].End.Equal(buckets[1].Start) {
		t.Errorf("buckets must be contiguous: %v != %v", buckets[0].End, buckets[1].Start)
	}
	if got, want := buckets[0].Start, now.AddDate(0, 0, -14); !got.Equal(want) {
		t.Errorf("oldest start = %v, want %v", got, want)
	}
}

func TestBucketsForMonthly(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	buckets := BucketsFor(GranularityMonthly, 3, now)
	wantMonths := []time.Month{time.January, time.February, time.March}
	for i, b := range buckets {
		if b.Start.Month() != wantMonths[i] || b.Start.Day() != 1 {
			t.Errorf("bucket %d = %v, want first of %v", i, b.Start, wantMonths[i])
		}
		if got, want := b.End, b.Start.AddDate(0, 1, 0); !got.Equal(want) {
			t.Errorf("bucket %d end = %v, want %v", i, got, want)
		}
	}
}
