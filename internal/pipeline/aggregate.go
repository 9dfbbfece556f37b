package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// GroupStat is one group of a group-sum-count rollup: total volume plus row
// count. Rows without a parseable amount contribute to Count but not Volume.
type GroupStat struct {
	Key    string
	Volume decimal.Decimal
	Count  int
}

// WeekBucket aggregates volume and count for one calendar week, keyed by the
// Monday the week starts on.
type WeekBucket struct {
	Week   time.Time
	Volume decimal.Decimal
	Count  int
}

// GroupSumCount groups records by a categorical key and returns per-group
// volume and count, sorted descending by volume. The sort is stable so equal
// volumes keep first-encountered order.
func GroupSumCount(records []model.LoanRecord, key func(model.LoanRecord) string) []GroupStat {
	index := make(map[string]int)
	var stats []GroupStat

	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(stats)
			index[k] = i
			stats = append(stats, GroupStat{Key: k, Volume: decimal.Zero})
		}
		stats[i].Count++
		if r.HasAmount() {
			stats[i].Volume = stats[i].Volume.Add(r.Amount())
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Volume.GreaterThan(stats[j].Volume)
	})
	return stats
}

// TopN returns the first n entries of an already-ranked stat slice. Ties
// were resolved by the stable group sort, so original order wins.
func TopN(stats []GroupStat, n int) []GroupStat {
	if n >= len(stats) {
		return stats
	}
	return stats[:n]
}

// CumulativePct returns, for each ranked group, the running share of total
// volume in percent. Used for pareto charts. All zeros when total volume is
// zero.
func CumulativePct(stats []GroupStat) []float64 {
	total := decimal.Zero
	for _, s := range stats {
		total = total.Add(s.Volume)
	}

	out := make([]float64, len(stats))
	if total.IsZero() {
		return out
	}

	running := decimal.Zero
	for i, s := range stats {
		running = running.Add(s.Volume)
		pct, _ := running.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		out[i] = pct
	}
	return out
}

// weekStart truncates a date to the Monday of its week.
func weekStart(t time.Time) time.Time {
	weekday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return time.Date(t.Year(), t.Month(), t.Day()-weekday, 0, 0, 0, 0, t.Location())
}

// WeekBuckets buckets records by calendar week of the given date field.
// Rows with no date in that field are excluded, not treated as zero. The
// second return is the mean volume across buckets in dollars, nil when no
// row carried a date.
func WeekBuckets(records []model.LoanRecord, date func(model.LoanRecord) *time.Time) ([]WeekBucket, *float64) {
	index := make(map[time.Time]int)
	var buckets []WeekBucket

	for _, r := range records {
		t := date(r)
		if t == nil {
			continue
		}
		wk := weekStart(*t)
		i, ok := index[wk]
		if !ok {
			i = len(buckets)
			index[wk] = i
			buckets = append(buckets, WeekBucket{Week: wk, Volume: decimal.Zero})
		}
		buckets[i].Count++
		if r.HasAmount() {
			buckets[i].Volume = buckets[i].Volume.Add(r.Amount())
		}
	}

	if len(buckets) == 0 {
		return nil, nil
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Week.Before(buckets[j].Week) })

	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Volume)
	}
	mean, _ := total.Div(decimal.NewFromInt(int64(len(buckets)))).Float64()
	return buckets, &mean
}

// MissingFieldRate counts records the predicate marks missing and returns
// the count plus its percentage of the population, rounded to 2 decimals.
// The percentage is nil for an empty population; never a division by zero.
func MissingFieldRate(records []model.LoanRecord, missing func(model.LoanRecord) bool) (int, *float64) {
	var count int
	for _, r := range records {
		if missing(r) {
			count++
		}
	}
	if len(records) == 0 {
		return count, nil
	}
	pct := math.Round(float64(count)/float64(len(records))*100*100) / 100
	return count, &pct
}

// MeanElapsedDays computes the mean of (end - start) in whole days over
// records carrying both dates. Records missing either date are excluded, not
// counted as zero. Nil when no record qualifies.
func MeanElapsedDays(records []model.LoanRecord, start, end func(model.LoanRecord) *time.Time) *float64 {
	var totalDays, n int
	for _, r := range records {
		s, e := start(r), end(r)
		if s == nil || e == nil {
			continue
		}
		totalDays += int(e.Sub(*s).Hours() / 24)
		n++
	}
	if n == 0 {
		return nil
	}
	mean := math.Round(float64(totalDays)/float64(n)*10) / 10
	return &mean
}

// CountDistinct counts distinct values of a key over the records.
func CountDistinct(records []model.LoanRecord, key func(model.LoanRecord) string) int {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[key(r)] = true
	}
	return len(seen)
}
