package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/billing"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

// BillingService rolls token usage into billing buckets and reports on them.
type BillingService struct {
	store       store.Store
	rates       billing.Rates
	reportRates billing.Rates
	logger      *logger.Logger
}

// BillingOption configures a BillingService.
type BillingOption func(*BillingService)

// WithRates overrides the bucket and monthly report rates.
func WithRates(bucket, report billing.Rates) BillingOption {
	return func(s *BillingService) {
		s.rates = bucket
		s.reportRates = report
	}
}

// NewBillingService creates a new billing service.
func NewBillingService(st store.Store, log *logger.Logger, opts ...BillingOption) *BillingService {
	s := &BillingService{
		store:       st,
		rates:       billing.DefaultRates,
		reportRates: billing.DefaultReportRates,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BillingQuery selects buckets of one frequency. From and To accept
// DD-MM-YYYY, YYYY-MM-DD, MM-YYYY, YYYY-MM or YYYY and are inclusive.
type BillingQuery struct {
	From       string
	To         string
	Frequency  model.Frequency
	PageNumber int
	PageSize   int
}

// Accumulate adds one exchange's usage to the tenant's daily, monthly and
// yearly buckets at ts.
func (s *BillingService) Accumulate(ctx context.Context, tenantID string, ts time.Time, inputTokens, outputTokens int) error {
	cost := s.rates.Cost(int64(inputTokens), int64(outputTokens))

	for _, key := range billing.Keys(tenantID, ts) {
		if err := s.increment(ctx, key, inputTokens, outputTokens, cost); err != nil {
			return err
		}
	}

	metrics.RecordBilling(tenantID, inputTokens, outputTokens, cost)
	return nil
}

// BillPair bills the tokens carried by msg, the second message of a stored
// pair, to each bucket it has not been billed to yet. Every bucket is
// claimed on the message before it is incremented, and the claim is
// released when the increment fails, so a retried pair bills exactly the
// buckets an earlier attempt missed. It reports whether this call billed any
// bucket.
func (s *BillingService) BillPair(ctx context.Context, msg *model.Message) (bool, error) {
	tenantID := model.TenantID(msg.ConversationID)
	cost := s.rates.Cost(int64(msg.InputTokens), int64(msg.OutputTokens))

	billed := false
	for _, key := range billing.Keys(tenantID, msg.CreatedAt) {
		if msg.BilledTo(key.Frequency) {
			continue
		}
		claimed, err := s.store.Messages().ClaimBilling(ctx, msg.ID, key.Frequency)
		if err != nil {
			return false, fmt.Errorf("failed to claim %s billing: %w", key.Frequency, err)
		}
		if !claimed {
			continue
		}

		if err := s.increment(ctx, key, msg.InputTokens, msg.OutputTokens, cost); err != nil {
			if rerr := s.store.Messages().ReleaseBilling(ctx, msg.ID, key.Frequency); rerr != nil {
				s.logger.Error("failed to release billing claim, bucket left unbilled",
					zap.String("message_id", msg.ID),
					zap.String("frequency", string(key.Frequency)),
					zap.Error(rerr),
				)
			}
			return false, err
		}
		billed = true
		if key.Frequency == model.FrequencyDaily {
			metrics.RecordBilling(tenantID, msg.InputTokens, msg.OutputTokens, cost)
		}
	}
	return billed, nil
}

func (s *BillingService) increment(ctx context.Context, key model.BucketKey, inputTokens, outputTokens int, cost float64) error {
	if err := s.store.Billing().Increment(ctx, key, inputTokens, outputTokens, cost); err != nil {
		s.logger.Error("failed to increment billing bucket",
			zap.String("tenant_id", key.TenantID),
			zap.String("frequency", string(key.Frequency)),
			zap.String("date_key", key.DateKey),
			zap.Error(err),
		)
		return fmt.Errorf("failed to accumulate %s billing: %w", key.Frequency, err)
	}
	return nil
}

// Query returns one page of buckets. The totals cover only the buckets on
// the returned page.
func (s *BillingService) Query(ctx context.Context, q BillingQuery) (*model.BillingPage, error) {
	if q.Frequency == "" {
		q.Frequency = model.FrequencyDaily
	}
	if !q.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidArgument, q.Frequency)
	}

	rng, err := billing.ParseRange(q.Frequency, q.From, q.To)
	if err != nil {
		return nil, err
	}

	meta := pagination.New(0, q.PageNumber, q.PageSize)
	filter := store.BucketFilter{Frequency: q.Frequency, From: rng.From, To: rng.To}

	buckets, total, err := s.store.Billing().Query(ctx, filter, meta.Skip(), meta.Limit())
	if err != nil {
		return nil, fmt.Errorf("failed to query billing: %w", err)
	}

	result := &model.BillingPage{
		Buckets:  buckets,
		Metadata: pagination.New(total, meta.PageNumber, meta.PageSize),
	}
	for _, b := range buckets {
		result.TotalCost += b.Cost
		result.TotalInputTokens += b.InputTokens
		result.TotalOutputTokens += b.OutputTokens
	}
	return result, nil
}

// MonthlyReport prices an owner's token usage per calendar month with the
// report rates, oldest month first.
func (s *BillingService) MonthlyReport(ctx context.Context, ownerID string) (*model.MonthlyReport, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrInvalidArgument)
	}

	usage, err := s.store.Messages().MonthlyUsage(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	report := &model.MonthlyReport{
		OwnerID: ownerID,
		Months:  make([]model.MonthlyBill, 0, len(usage)),
	}
	for _, u := range usage {
		report.Months = append(report.Months, model.MonthlyBill{
			MonthlyUsage:  u,
			BillingAmount: s.reportRates.Cost(u.InputTokens, u.OutputTokens),
		})
	}
	return report, nil
}
