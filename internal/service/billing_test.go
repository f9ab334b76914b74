package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/billing"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
)

func TestAccumulateIsLinear(t *testing.T) {
	split := newTestServices(t)
	whole := newTestServices(t)
	ctx := context.Background()

	require.NoError(t, split.billing.Accumulate(ctx, "T1", baseTime, 100, 40))
	require.NoError(t, split.billing.Accumulate(ctx, "T1", baseTime, 300, 60))
	require.NoError(t, whole.billing.Accumulate(ctx, "T1", baseTime, 400, 100))

	for _, f := range model.Frequencies {
		a := bucket(t, split, f)
		b := bucket(t, whole, f)
		assert.Equal(t, b.InputTokens, a.InputTokens)
		assert.Equal(t, b.OutputTokens, a.OutputTokens)
		assert.InDelta(t, b.Cost, a.Cost, 1e-12)
	}
}

func TestAccumulateConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newTestServices(t)
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.billing.Accumulate(context.Background(), "T1", baseTime, 7, 3))
		}()
	}
	wg.Wait()

	for _, f := range model.Frequencies {
		b := bucket(t, svc, f)
		assert.Equal(t, int64(7*workers), b.InputTokens)
		assert.Equal(t, int64(3*workers), b.OutputTokens)
		assert.InDelta(t, billing.Cost(7, 3)*workers, b.Cost, 1e-9)
	}
}

func TestQueryBilling(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC),
	}
	for i, d := range days {
		require.NoError(t, svc.billing.Accumulate(ctx, "T1", d, 100*(i+1), 10*(i+1)))
	}
	require.NoError(t, svc.billing.Accumulate(ctx, "T2", days[1], 1000, 0))

	page, err := svc.billing.Query(ctx, BillingQuery{
		From:      "01-03-2024",
		To:        "03-2024",
		Frequency: model.FrequencyDaily,
		PageSize:  10,
	})
	require.NoError(t, err)
	require.Len(t, page.Buckets, 3)
	assert.Equal(t, "01-03-2024", page.Buckets[0].DateKey)
	assert.Equal(t, "T1", page.Buckets[0].TenantID)
	assert.Equal(t, "T2", page.Buckets[1].TenantID)
	assert.Equal(t, "31-03-2024", page.Buckets[2].DateKey)
	assert.Equal(t, int64(200+1000+300), page.TotalInputTokens)
	assert.Equal(t, int64(3), page.Metadata.Total)

	monthly, err := svc.billing.Query(ctx, BillingQuery{Frequency: model.FrequencyMonthly, From: "2024-03", To: "2024-03"})
	require.NoError(t, err)
	require.Len(t, monthly.Buckets, 2)
	assert.Equal(t, "03-2024", monthly.Buckets[0].DateKey)
}

func TestQueryBillingTotalsCoverPageOnly(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.billing.Accumulate(ctx, "T1", baseTime.AddDate(0, 0, i), 100, 100))
	}

	page, err := svc.billing.Query(ctx, BillingQuery{Frequency: model.FrequencyDaily, PageNumber: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Buckets, 2)
	assert.Equal(t, int64(200), page.TotalInputTokens)
	assert.InDelta(t, 2*billing.Cost(100, 100), page.TotalCost, 1e-12)
	assert.Equal(t, int64(3), page.Metadata.Total)
	assert.Equal(t, 2, page.Metadata.TotalPages)
}

func TestQueryBillingErrors(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.billing.Query(ctx, BillingQuery{Frequency: model.FrequencyDaily, From: "March 2024"})
	assert.ErrorIs(t, err, billing.ErrInvalidDateFormat)

	_, err = svc.billing.Query(ctx, BillingQuery{Frequency: "hourly"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMonthlyReport(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	postPair(t, svc, pair("T1_a", "u1", "q", "a", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 1000, 500))
	postPair(t, svc, pair("T1_a", "u1", "q", "a", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 200, 100))
	postPair(t, svc, pair("T1_b", "u1", "q", "a", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), 1000, 500))
	postPair(t, svc, pair("T1_c", "u2", "q", "a", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), 9, 9))

	report, err := svc.billing.MonthlyReport(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, report.Months, 2)

	jan, feb := report.Months[0], report.Months[1]
	assert.Equal(t, 2024, jan.Year)
	assert.Equal(t, 1, jan.Month)
	assert.Equal(t, int64(200), jan.InputTokens)
	assert.Equal(t, 2, feb.Month)
	assert.Equal(t, int64(2000), feb.InputTokens)
	assert.Equal(t, int64(1000), feb.OutputTokens)
	assert.InDelta(t, billing.ReportCost(2000, 1000), feb.BillingAmount, 1e-12)

	empty, err := svc.billing.MonthlyReport(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Months)
}
