package routing

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/metrics"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/observability"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// VendorRanker ranks candidates for one product line.
type VendorRanker interface {
	RankVendors(ctx context.Context, productID string, quantity int, opts RankOptions) ([]models.RankedVendor, error)
}

// OrderCommitter commits a split plan atomically.
type OrderCommitter interface {
	CommitOrder(ctx context.Context, req models.RoutingRequest, groups []models.SplitGroup) (string, error)
}

// DecisionWriter persists the immutable routing decision record.
type DecisionWriter interface {
	Insert(ctx context.Context, d models.RoutingDecision) error
}

// EventAppender records the ASSIGNED lifecycle events after a commit.
type EventAppender interface {
	RecordEvent(ctx context.Context, ev models.PerformanceEvent) (models.VendorScore, error)
}

// Notifier informs the messaging service of allocations and stockouts and
// flags allocation defects to operators.
type Notifier interface {
	OrderRouted(ctx context.Context, req models.RoutingRequest, groups []models.SplitGroup)
	Stockout(ctx context.Context, req models.RoutingRequest, reason models.FailureReason)
	AllocationDefect(ctx context.Context, orderID, details string)
}

// WeightsSource exposes the weights in force, snapshotted into each
// decision for audit.
type WeightsSource interface {
	Current() models.Weights
}

// Result is what a successful pipeline run returns to the caller.
type Result struct {
	CommittedOrderID string                   `json:"committedOrderId"`
	Attempts         int                      `json:"attempts"`
	Selections       []models.SelectionRecord `json:"selections"`
	Groups           []models.SplitGroup      `json:"groups"`
	Weights          models.Weights           `json:"weights"`
}

// PipelineConfig carries the retry tunables.
type PipelineConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Pipeline is the single place retry policy lives: it composes rank ->
// split -> commit, excluding a vendor for a line after it loses a stock
// race and backing off on lock contention, up to the attempt budget. The
// engines underneath never retry on their own.
type Pipeline struct {
	ranker    VendorRanker
	committer OrderCommitter
	decisions DecisionWriter
	events    EventAppender
	notifier  Notifier
	weights   WeightsSource
	cfg       PipelineConfig
	obs       *observability.Observability
	logger    logger.Logger
}

func NewPipeline(ranker VendorRanker, committer OrderCommitter, decisions DecisionWriter,
	events EventAppender, notifier Notifier, weights WeightsSource,
	cfg PipelineConfig, obs *observability.Observability, log logger.Logger) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Pipeline{
		ranker:    ranker,
		committer: committer,
		decisions: decisions,
		events:    events,
		notifier:  notifier,
		weights:   weights,
		cfg:       cfg,
		obs:       obs,
		logger:    log,
	}
}

// Run routes and commits one order. The caller bounds the whole run
// through ctx; a terminal failure carries a structured reason naming the
// failing (product, vendor) pair and whether stock, score or contention
// caused it.
func (p *Pipeline) Run(ctx context.Context, req models.RoutingRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	log := p.logger.WithFields(map[string]interface{}{"orderId": req.OrderID})
	weights := p.weights.Current()

	// Vendors that lost a stock race for a line are never retried for
	// that same line.
	excluded := map[string][]string{}
	var lastFailure models.FailureReason

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		selections, records, err := p.selectVendors(ctx, req, excluded)
		if err != nil {
			var stdErr *errors.StandardError
			if goerrors.As(err, &stdErr) && stdErr.Code == errors.ErrCodeNoEligibleVendor {
				reason := noVendorReason(stdErr, excluded)
				p.finishFailed(ctx, req, records, weights, attempt, reason)
				metrics.RoutingAttempts.WithLabelValues("no_vendor").Inc()
				return nil, errors.NewRoutingExhaustedError(req.OrderID, attempt, reason.ProductID, reason.VendorID, string(reason.Cause))
			}
			return nil, err
		}

		groups, err := SplitOrder(req, selections)
		if err != nil {
			// Invariant violation, not a race: alert and stop.
			p.notifier.AllocationDefect(ctx, req.OrderID, err.Error())
			p.finishFailed(ctx, req, records, weights, attempt, models.FailureReason{
				Cause:   models.FailureCauseScore,
				Message: err.Error(),
			})
			metrics.RoutingAttempts.WithLabelValues("allocation_defect").Inc()
			return nil, err
		}

		committedID, err := p.committer.CommitOrder(ctx, req, groups)
		if err == nil {
			result := &Result{
				CommittedOrderID: committedID,
				Attempts:         attempt,
				Selections:       records,
				Groups:           groups,
				Weights:          weights,
			}
			p.finishCommitted(ctx, req, result)
			metrics.RoutingAttempts.WithLabelValues("committed").Inc()
			metrics.RoutingDuration.Observe(time.Since(start).Seconds())
			if p.obs != nil {
				p.obs.RecordOrderRouted(ctx, "committed", attempt)
			}
			return result, nil
		}

		var stdErr *errors.StandardError
		if !goerrors.As(err, &stdErr) {
			return nil, err
		}
		switch stdErr.Code {
		case errors.ErrCodeStockConflict:
			vendorID, _ := stdErr.Metadata["vendorId"].(string)
			productID, _ := stdErr.Metadata["productId"].(string)
			excluded[productID] = append(excluded[productID], vendorID)
			lastFailure = models.FailureReason{
				ProductID: productID,
				VendorID:  vendorID,
				Cause:     models.FailureCauseStock,
				Message:   stdErr.Details,
			}
			log.Warn("stock conflict, re-ranking without vendor", map[string]interface{}{
				"attempt":   attempt,
				"vendorId":  vendorID,
				"productId": productID,
			})
			metrics.RoutingAttempts.WithLabelValues("stock_conflict").Inc()

		case errors.ErrCodeLockTimeout:
			lastFailure = models.FailureReason{
				Cause:   models.FailureCauseContention,
				Message: stdErr.Details,
			}
			log.Warn("lock contention, backing off", map[string]interface{}{"attempt": attempt})
			metrics.RoutingAttempts.WithLabelValues("lock_timeout").Inc()
			if err := p.backoff(ctx, attempt); err != nil {
				return nil, errors.NewRoutingExhaustedError(req.OrderID, attempt, "", "", string(models.FailureCauseContention))
			}

		default:
			return nil, err
		}
	}

	p.finishFailed(ctx, req, nil, weights, p.cfg.MaxAttempts, lastFailure)
	metrics.RoutingAttempts.WithLabelValues("exhausted").Inc()
	if p.obs != nil {
		p.obs.RecordOrderRouted(ctx, "exhausted", p.cfg.MaxAttempts)
	}
	return nil, errors.NewRoutingExhaustedError(req.OrderID, p.cfg.MaxAttempts,
		lastFailure.ProductID, lastFailure.VendorID, string(lastFailure.Cause))
}

// selectVendors ranks every line and picks the top candidate not yet
// excluded for it.
func (p *Pipeline) selectVendors(ctx context.Context, req models.RoutingRequest, excluded map[string][]string) ([]models.VendorSelection, []models.SelectionRecord, error) {
	selections := make([]models.VendorSelection, 0, len(req.Items))
	records := make([]models.SelectionRecord, 0, len(req.Items))

	for _, line := range req.Items {
		candidates, err := p.ranker.RankVendors(ctx, line.ProductID, line.Quantity, RankOptions{
			Exclude: excluded[line.ProductID],
		})
		if err != nil {
			return nil, records, err
		}

		chosen := candidates[0]
		selections = append(selections, models.VendorSelection{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			VendorID:     chosen.VendorID,
			UnitPrice:    chosen.UnitPrice,
			OverallScore: chosen.OverallScore,
		})

		record := models.SelectionRecord{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			VendorID:     chosen.VendorID,
			UnitPrice:    chosen.UnitPrice,
			OverallScore: chosen.OverallScore,
		}
		for _, c := range candidates {
			record.Candidates = append(record.Candidates, models.CandidateRecord{
				VendorID:     c.VendorID,
				OverallScore: c.OverallScore,
				UnitPrice:    c.UnitPrice,
			})
		}
		records = append(records, record)
	}
	return selections, records, nil
}

// finishCommitted writes the decision record, feeds ASSIGNED events back
// into scoring and notifies the messaging service. The commit already
// happened, so failures here are logged, not surfaced.
func (p *Pipeline) finishCommitted(ctx context.Context, req models.RoutingRequest, result *Result) {
	decision := models.RoutingDecision{
		ID:         uuid.NewString(),
		OrderID:    req.OrderID,
		Status:     models.DecisionStatusCommitted,
		Attempts:   result.Attempts,
		Selections: result.Selections,
		Groups:     result.Groups,
		Weights:    result.Weights,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.decisions.Insert(ctx, decision); err != nil {
		p.logger.Error("decision log write failed after commit", map[string]interface{}{
			"orderId": req.OrderID,
			"error":   err.Error(),
		})
	}

	now := time.Now().UTC()
	for _, g := range result.Groups {
		for _, item := range g.Items {
			price := item.UnitPrice
			if _, err := p.events.RecordEvent(ctx, models.PerformanceEvent{
				VendorID:    g.VendorID,
				OrderID:     req.OrderID,
				ProductID:   item.ProductID,
				EventType:   models.EventAssigned,
				AssignedAt:  now,
				QuotedPrice: &price,
			}); err != nil {
				p.logger.Error("assigned event write failed", map[string]interface{}{
					"orderId":  req.OrderID,
					"vendorId": g.VendorID,
					"error":    err.Error(),
				})
			}
		}
	}

	p.notifier.OrderRouted(ctx, req, result.Groups)
}

func (p *Pipeline) finishFailed(ctx context.Context, req models.RoutingRequest, records []models.SelectionRecord, weights models.Weights, attempts int, reason models.FailureReason) {
	decision := models.RoutingDecision{
		ID:            uuid.NewString(),
		OrderID:       req.OrderID,
		Status:        models.DecisionStatusFailed,
		Attempts:      attempts,
		Selections:    records,
		Weights:       weights,
		FailureReason: &reason,
		CreatedAt:     time.Now().UTC(),
	}
	if err := p.decisions.Insert(ctx, decision); err != nil {
		p.logger.Error("decision log write failed", map[string]interface{}{
			"orderId": req.OrderID,
			"error":   err.Error(),
		})
	}
	p.notifier.Stockout(ctx, req, reason)
}

// backoff sleeps exponentially per attempt, aborting if the caller's
// deadline fires first.
func (p *Pipeline) backoff(ctx context.Context, attempt int) error {
	if p.cfg.RetryBackoff <= 0 {
		return nil
	}
	delay := p.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noVendorReason classifies an empty candidate set: lines that already
// excluded vendors failed on stock races, everything else on the score
// floor.
func noVendorReason(stdErr *errors.StandardError, excluded map[string][]string) models.FailureReason {
	productID, _ := stdErr.Metadata["productId"].(string)
	cause := models.FailureCauseScore
	if len(excluded[productID]) > 0 {
		cause = models.FailureCauseStock
	}
	return models.FailureReason{
		ProductID: productID,
		Cause:     cause,
		Message:   stdErr.Details,
	}
}

func validateRequest(req models.RoutingRequest) error {
	if req.OrderID == "" {
		return errors.NewBusinessRuleError("routing request rejected", "orderId is required")
	}
	if len(req.Items) == 0 {
		return errors.NewBusinessRuleError("routing request rejected", "at least one line item is required")
	}
	seen := map[string]struct{}{}
	for _, line := range req.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			return errors.NewBusinessRuleError("routing request rejected", "every line needs a productId and a positive quantity")
		}
		if _, dup := seen[line.ProductID]; dup {
			return errors.NewBusinessRuleError("routing request rejected", "duplicate product line: "+line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
