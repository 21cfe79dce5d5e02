package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type fakeRanker struct {
	candidates map[string][]models.RankedVendor
	calls      []RankOptions
}

func (f *fakeRanker) RankVendors(_ context.Context, productID string, quantity int, opts RankOptions) ([]models.RankedVendor, error) {
	f.calls = append(f.calls, opts)
	var out []models.RankedVendor
	for _, c := range f.candidates[productID] {
		skip := false
		for _, ex := range opts.Exclude {
			if c.VendorID == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, stderrors.NewNoEligibleVendorError(productID, quantity, 60)
	}
	return out, nil
}

type fakeCommitter struct {
	errs  []error // one per call, nil means success
	calls [][]models.SplitGroup
}

func (f *fakeCommitter) CommitOrder(_ context.Context, req models.RoutingRequest, groups []models.SplitGroup) (string, error) {
	f.calls = append(f.calls, groups)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return req.OrderID, nil
}

type fakeDecisionWriter struct {
	decisions []models.RoutingDecision
}

func (f *fakeDecisionWriter) Insert(_ context.Context, d models.RoutingDecision) error {
	f.decisions = append(f.decisions, d)
	return nil
}

type fakeEventAppender struct {
	events []models.PerformanceEvent
}

func (f *fakeEventAppender) RecordEvent(_ context.Context, ev models.PerformanceEvent) (models.VendorScore, error) {
	f.events = append(f.events, ev)
	return models.VendorScore{}, nil
}

type fakeNotifier struct {
	routed    []models.RoutingRequest
	stockouts []models.FailureReason
	defects   []string
}

func (f *fakeNotifier) OrderRouted(_ context.Context, req models.RoutingRequest, _ []models.SplitGroup) {
	f.routed = append(f.routed, req)
}

func (f *fakeNotifier) Stockout(_ context.Context, _ models.RoutingRequest, reason models.FailureReason) {
	f.stockouts = append(f.stockouts, reason)
}

func (f *fakeNotifier) AllocationDefect(_ context.Context, orderID, _ string) {
	f.defects = append(f.defects, orderID)
}

type fixedWeights struct{}

func (fixedWeights) Current() models.Weights {
	return models.Weights{ResponseSpeed: 0.20, AcceptanceRate: 0.20, Price: 0.20, DeliverySuccess: 0.25, CancellationRate: 0.15}
}

type pipelineFixture struct {
	ranker    *fakeRanker
	committer *fakeCommitter
	decisions *fakeDecisionWriter
	events    *fakeEventAppender
	notifier  *fakeNotifier
	pipeline  *Pipeline
}

func newPipelineFixture(ranker *fakeRanker, committer *fakeCommitter) *pipelineFixture {
	f := &pipelineFixture{
		ranker:    ranker,
		committer: committer,
		decisions: &fakeDecisionWriter{},
		events:    &fakeEventAppender{},
		notifier:  &fakeNotifier{},
	}
	f.pipeline = NewPipeline(ranker, committer, f.decisions, f.events, f.notifier, fixedWeights{},
		PipelineConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond}, nil, logger.NewNoOpLogger())
	return f
}

func singleLineRequest() models.RoutingRequest {
	return models.RoutingRequest{
		OrderID: "order-1",
		Items:   []models.OrderLine{{ProductID: "prod-1", Quantity: 2}},
	}
}

func TestPipeline_CommitsFirstAttempt(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10}},
	}}
	f := newPipelineFixture(ranker, &fakeCommitter{})

	result, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.NoError(t, err)
	assert.Equal(t, "order-1", result.CommittedOrderID)
	assert.Equal(t, 1, result.Attempts)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "vendor-a", result.Groups[0].VendorID)

	// Decision, ASSIGNED event and notification all follow the commit.
	require.Len(t, f.decisions.decisions, 1)
	assert.Equal(t, models.DecisionStatusCommitted, f.decisions.decisions[0].Status)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventAssigned, f.events.events[0].EventType)
	assert.Equal(t, "vendor-a", f.events.events[0].VendorID)
	require.NotNil(t, f.events.events[0].QuotedPrice)
	assert.Equal(t, 10.0, *f.events.events[0].QuotedPrice)
	assert.Len(t, f.notifier.routed, 1)
}

func TestPipeline_StockConflictExcludesVendorAndRetries(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {
			{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10},
			{VendorID: "vendor-b", OverallScore: 80, UnitPrice: 12},
		},
	}}
	committer := &fakeCommitter{errs: []error{
		stderrors.NewStockConflictError("vendor-a", "prod-1", 1, 2),
		nil,
	}}
	f := newPipelineFixture(ranker, committer)

	result, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)

	// Second attempt excluded the vendor that lost the stock race.
	require.Len(t, ranker.calls, 2)
	assert.Empty(t, ranker.calls[0].Exclude)
	assert.Equal(t, []string{"vendor-a"}, ranker.calls[1].Exclude)

	require.Len(t, committer.calls, 2)
	assert.Equal(t, "vendor-b", committer.calls[1][0].VendorID)
}

func TestPipeline_LockTimeoutRetriesSameVendor(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10}},
	}}
	committer := &fakeCommitter{errs: []error{
		stderrors.NewLockTimeoutError("order-1", context.DeadlineExceeded),
		nil,
	}}
	f := newPipelineFixture(ranker, committer)

	result, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)

	// Contention does not exclude anyone.
	require.Len(t, ranker.calls, 2)
	assert.Empty(t, ranker.calls[1].Exclude)
}

func TestPipeline_ExhaustsAttemptBudget(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10}},
	}}
	committer := &fakeCommitter{errs: []error{
		stderrors.NewLockTimeoutError("order-1", context.DeadlineExceeded),
		stderrors.NewLockTimeoutError("order-1", context.DeadlineExceeded),
		stderrors.NewLockTimeoutError("order-1", context.DeadlineExceeded),
	}}
	f := newPipelineFixture(ranker, committer)

	_, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRoutingExhausted, stdErr.Code)
	assert.Equal(t, 3, stdErr.Metadata["attempts"])

	// Terminal failure is recorded and the stockout notice sent.
	require.Len(t, f.decisions.decisions, 1)
	assert.Equal(t, models.DecisionStatusFailed, f.decisions.decisions[0].Status)
	require.Len(t, f.notifier.stockouts, 1)
	assert.Equal(t, models.FailureCauseContention, f.notifier.stockouts[0].Cause)
}

func TestPipeline_NoVendorAfterExclusionIsStockFailure(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10}},
	}}
	committer := &fakeCommitter{errs: []error{
		stderrors.NewStockConflictError("vendor-a", "prod-1", 0, 2),
	}}
	f := newPipelineFixture(ranker, committer)

	_, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRoutingExhausted, stdErr.Code)
	assert.Equal(t, string(models.FailureCauseStock), stdErr.Metadata["cause"])

	require.Len(t, f.notifier.stockouts, 1)
	assert.Equal(t, models.FailureCauseStock, f.notifier.stockouts[0].Cause)
	assert.Equal(t, "prod-1", f.notifier.stockouts[0].ProductID)
}

func TestPipeline_NoVendorAtAllIsScoreFailure(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{}}
	f := newPipelineFixture(ranker, &fakeCommitter{})

	_, err := f.pipeline.Run(context.Background(), singleLineRequest())
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRoutingExhausted, stdErr.Code)
	assert.Equal(t, string(models.FailureCauseScore), stdErr.Metadata["cause"])
	require.Len(t, f.decisions.decisions, 1)
	assert.Equal(t, models.DecisionStatusFailed, f.decisions.decisions[0].Status)
}

func TestPipeline_RejectsBadRequests(t *testing.T) {
	f := newPipelineFixture(&fakeRanker{}, &fakeCommitter{})

	tests := []struct {
		name string
		req  models.RoutingRequest
	}{
		{"missing order id", models.RoutingRequest{Items: []models.OrderLine{{ProductID: "p", Quantity: 1}}}},
		{"no items", models.RoutingRequest{OrderID: "order-1"}},
		{"zero quantity", models.RoutingRequest{OrderID: "order-1", Items: []models.OrderLine{{ProductID: "p", Quantity: 0}}}},
		{"duplicate line", models.RoutingRequest{OrderID: "order-1", Items: []models.OrderLine{
			{ProductID: "p", Quantity: 1}, {ProductID: "p", Quantity: 2},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.Run(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, f.ranker.calls)
}

func TestPipeline_MultiLineSplitsAcrossVendors(t *testing.T) {
	ranker := &fakeRanker{candidates: map[string][]models.RankedVendor{
		"prod-1": {{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 10}},
		"prod-2": {{VendorID: "vendor-b", OverallScore: 85, UnitPrice: 4}},
	}}
	f := newPipelineFixture(ranker, &fakeCommitter{})

	req := models.RoutingRequest{
		OrderID: "order-1",
		Items: []models.OrderLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 3},
		},
	}
	result, err := f.pipeline.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "vendor-a", result.Groups[0].VendorID)
	assert.Equal(t, "vendor-b", result.Groups[1].VendorID)
	assert.Len(t, f.events.events, 2)
}
