package reporting

import "time"

// Named reporting periods. Unknown names fall back to last30days.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodLast7     = "last7days"
	PeriodLast30    = "last30days"
	PeriodThisMonth = "thisMonth"
	PeriodLastMonth = "lastMonth"
)

// RangeForPeriod resolves a named period into an inclusive [start, end]
// window anchored at now. Only yesterday and lastMonth compute an explicit
// end boundary; every other period ends at now.
func RangeForPeriod(period string, now time.Time) (time.Time, time.Time) {
	switch period {
	case PeriodToday:
		return startOfDay(now), now
	case PeriodYesterday:
		y := startOfDay(now).AddDate(0, 0, -1)
		return y, endOfDay(y)
	case PeriodLast7:
		return now.AddDate(0, 0, -7), now
	case PeriodThisMonth:
		return startOfMonth(now), now
	case PeriodLastMonth:
		first := startOfMonth(now).AddDate(0, -1, 0)
		return first, startOfMonth(now).Add(-time.Nanosecond)
	default:
		return now.AddDate(0, 0, -30), now
	}
}

// Granularity selects how EarningBuckets slices time.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return true
	}
	return false
}

// Bucket is one [Start, End) reporting window.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the bucket's half-open window.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// BucketsFor computes count windows ending at now, oldest first. Daily
// buckets are day-aligned, weekly buckets are rolling 7-day windows, and
// monthly buckets are calendar-month aligned.
func BucketsFor(g Granularity, count int, now time.Time) []Bucket {
	if count <= 0 {
		count = 1
	}

	buckets := make([]Bucket, 0, count)
	for i := count - 1; i >= 0; i-- {
		var b Bucket
		switch g {
		case GranularityWeekly:
			b.End = now.AddDate(0, 0, -7*i)
			b.Start = b.End.AddDate(0, 0, -7)
			b.Label = b.Start.Format("Jan 2") + " - " + b.End.Format("Jan 2")
		case GranularityMonthly:
			b.Start = startOfMonth(now).AddDate(0, -i, 0)
			b.End = b.Start.AddDate(0, 1, 0)
			b.Label = b.Start.Format("Jan 2006")
		default: // daily
			b.Start = startOfDay(now.AddDate(0, 0, -i))
			b.End = b.Start.AddDate(0, 0, 1)
			b.Label = b.Start.Format("Jan 2")
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
