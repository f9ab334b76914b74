package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBilling(t *testing.T) {
	before := testutil.ToFloat64(BillingTokensTotal.WithLabelValues("metrics-test", "in"))

	RecordBilling("metrics-test", 100, 50, 0.25)

	assert.Equal(t, before+100, testutil.ToFloat64(BillingTokensTotal.WithLabelValues("metrics-test", "in")))
	assert.Equal(t, 50.0, testutil.ToFloat64(BillingTokensTotal.WithLabelValues("metrics-test", "out")))
	assert.InDelta(t, 0.25, testutil.ToFloat64(BillingCostTotal.WithLabelValues("metrics-test")), 1e-9)
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/api/v1/billing", "200", 0.01)
	assert.Equal(t, 1.0, testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/api/v1/billing", "200")))
}
