// Package billing prices token usage and maps timestamps onto the billing
// buckets a paired write rolls up into.
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
)

// Rates are per-thousand-token prices.
type Rates struct {
	In  float64
	Out float64
}

// Cost prices token counts with r.
func (r Rates) Cost(inputTokens, outputTokens int64) float64 {
	return (float64(inputTokens)*r.In + float64(outputTokens)*r.Out) / 1000
}

// Validate rejects negative prices.
func (r Rates) Validate() error {
	if r.In < 0 || r.Out < 0 {
		return fmt.Errorf("billing rates must not be negative: in=%v out=%v", r.In, r.Out)
	}
	return nil
}

// Default rates of the bucket aggregation and of the monthly report. They
// are placeholders with no published price list behind them; deployments
// override them through BILLING_RATE_* and REPORT_RATE_*. The two pairs stay
// separate until product settles which one is authoritative.
var (
	DefaultRates       = Rates{In: 0.00015, Out: 0.0006}
	DefaultReportRates = Rates{In: 0.00016, Out: 0.00064}
)

// ErrInvalidDateFormat is returned when a date filter matches no accepted layout.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Display layouts of bucket date keys.
const (
	dailyLayout   = "02-01-2006"
	monthlyLayout = "01-2006"
	yearlyLayout  = "2006"
)

// Fixed-width sortable layouts of bucket sort keys.
const (
	dailySortLayout   = "20060102"
	monthlySortLayout = "200601"
	yearlySortLayout  = "2006"
)

// Cost prices token counts with the default bucket rates.
func Cost(inputTokens, outputTokens int) float64 {
	return DefaultRates.Cost(int64(inputTokens), int64(outputTokens))
}

// ReportCost prices token counts with the default monthly report rates.
func ReportCost(inputTokens, outputTokens int64) float64 {
	return DefaultReportRates.Cost(inputTokens, outputTokens)
}

// DateKey renders t in the display format of f.
func DateKey(f model.Frequency, t time.Time) string {
	t = t.UTC()
	switch f {
	case model.FrequencyMonthly:
		return t.Format(monthlyLayout)
	case model.FrequencyYearly:
		return t.Format(yearlyLayout)
	default:
		return t.Format(dailyLayout)
	}
}

// SortKey renders t in the fixed-width sortable format of f.
func SortKey(f model.Frequency, t time.Time) string {
	t = t.UTC()
	switch f {
	case model.FrequencyMonthly:
		return t.Format(monthlySortLayout)
	case model.FrequencyYearly:
		return t.Format(yearlySortLayout)
	default:
		return t.Format(dailySortLayout)
	}
}

// Keys returns the daily, monthly and yearly bucket keys for a tenant at t.
func Keys(tenantID string, t time.Time) []model.BucketKey {
	keys := make([]model.BucketKey, 0, len(model.Frequencies))
	for _, f := range model.Frequencies {
		keys = append(keys, model.BucketKey{
			Frequency: f,
			DateKey:   DateKey(f, t),
			SortKey:   SortKey(f, t),
			TenantID:  tenantID,
		})
	}
	return keys
}

type granularity int

const (
	day granularity = iota
	month
	year
)

var boundLayouts = []struct {
	layout string
	gran   granularity
}{
	{dailyLayout, day},
	{"2006-01-02", day},
	{monthlyLayout, month},
	{"2006-01", month},
	{yearlyLayout, year},
}

// Range is an inclusive sort-key range. Empty bounds are open.
type Range struct {
	From string
	To   string
}

// ParseRange converts user supplied from/to filters into sort keys of f.
// A bound coarser than f covers its whole period, so to="03-2024" on a
// daily query includes March 31st.
func ParseRange(f model.Frequency, from, to string) (Range, error) {
	var r Range

	if from != "" {
		start, _, err := parseBound(from)
		if err != nil {
			return Range{}, err
		}
		r.From = SortKey(f, start)
	}

	if to != "" {
		start, gran, err := parseBound(to)
		if err != nil {
			return Range{}, err
		}
		r.To = SortKey(f, periodEnd(start, gran))
	}

	return r, nil
}

func parseBound(s string) (time.Time, granularity, error) {
	for _, l := range boundLayouts {
		if len(s) != len(l.layout) {
			continue
		}
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.gran, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
}

func periodEnd(start time.Time, g granularity) time.Time {
	switch g {
	case month:
		return start.AddDate(0, 1, -1)
	case year:
		return start.AddDate(1, 0, -1)
	default:
		return start
	}
}
