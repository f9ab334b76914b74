package model

import (
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
)

// Frequency is the rollup granularity of a billing bucket.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Frequencies lists every rollup a paired write updates.
var Frequencies = []Frequency{FrequencyDaily, FrequencyMonthly, FrequencyYearly}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// BucketKey identifies one billing bucket.
type BucketKey struct {
	Frequency Frequency
	DateKey   string
	SortKey   string
	TenantID  string
}

// BillingBucket is one aggregated billing row. DateKey keeps the display
// format of its frequency; SortKey is the fixed-width form used for ranges.
type BillingBucket struct {
	Frequency    Frequency `json:"frequency" bson:"frequency"`
	DateKey      string    `json:"date_key" bson:"date_key"`
	SortKey      string    `json:"-" bson:"sort_key"`
	TenantID     string    `json:"tenant_id" bson:"tenant_id"`
	InputTokens  int64     `json:"input_tokens" bson:"input_tokens"`
	OutputTokens int64     `json:"output_tokens" bson:"output_tokens"`
	Cost         float64   `json:"cost" bson:"cost"`
}

// BillingPage is one page of buckets. The totals cover the returned page only.
type BillingPage struct {
	Buckets           []BillingBucket     `json:"buckets"`
	TotalCost         float64             `json:"total_cost"`
	TotalInputTokens  int64               `json:"total_input_tokens"`
	TotalOutputTokens int64               `json:"total_output_tokens"`
	Metadata          pagination.Metadata `json:"metadata"`
}

// MonthlyUsage is the raw token sum of one owner's messages in a month.
type MonthlyUsage struct {
	Year         int   `json:"year" bson:"year"`
	Month        int   `json:"month" bson:"month"`
	InputTokens  int64 `json:"input_tokens" bson:"input_tokens"`
	OutputTokens int64 `json:"output_tokens" bson:"output_tokens"`
}

// MonthlyBill is a MonthlyUsage priced with the report rates.
type MonthlyBill struct {
	MonthlyUsage
	BillingAmount float64 `json:"billing_amount"`
}

// MonthlyReport is the per-user monthly billing report.
type MonthlyReport struct {
	OwnerID string        `json:"owner_id"`
	Months  []MonthlyBill `json:"months"`
}
