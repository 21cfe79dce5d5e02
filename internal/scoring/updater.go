package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/metrics"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// EventLog is the slice of the event store the updater needs: append new
// performance events and read window aggregates back.
type EventLog interface {
	Insert(ctx context.Context, ev models.PerformanceEvent) error
	Window(ctx context.Context, vendorID string, since time.Time) (Window, error)
	MarketPrices(ctx context.Context, productIDs []string, since time.Time) (MarketPrices, error)
}

// ScoreState persists the single live score row and the append-only
// history per vendor.
type ScoreState interface {
	Get(ctx context.Context, vendorID string) (models.VendorScore, error)
	Upsert(ctx context.Context, score models.VendorScore) error
	AppendHistory(ctx context.Context, entry models.ScoreHistoryEntry) error
}

// Updater is the event-driven score update engine: it appends a
// performance event, recomputes the vendor's components from the rolling
// window and persists the new score plus a history snapshot.
type Updater struct {
	events    EventLog
	scores    ScoreState
	strategy  Strategy
	weights   *WeightsProvider
	window    time.Duration
	lateAfter time.Duration
	logger    logger.Logger
}

// UpdaterConfig carries the tunables the updater needs from config.
type UpdaterConfig struct {
	WindowDays          int
	LateResponseMinutes int
}

func NewUpdater(events EventLog, scores ScoreState, strategy Strategy, weights *WeightsProvider, cfg UpdaterConfig, log logger.Logger) *Updater {
	return &Updater{
		events:    events,
		scores:    scores,
		strategy:  strategy,
		weights:   weights,
		window:    time.Duration(cfg.WindowDays) * 24 * time.Hour,
		lateAfter: time.Duration(cfg.LateResponseMinutes) * time.Minute,
		logger:    log,
	}
}

// LateThreshold exposes the late-response cutoff for the sweep.
func (u *Updater) LateThreshold() time.Duration { return u.lateAfter }

// RecordEvent validates and appends a lifecycle event, then recomputes
// the vendor's score. An accept or reject that arrived past the
// late-response threshold records an additional LATE_RESPONSE penalty
// event so habitual slow responders stay visible in history even when
// they eventually answer.
func (u *Updater) RecordEvent(ctx context.Context, ev models.PerformanceEvent) (models.VendorScore, error) {
	if err := validateEvent(ev); err != nil {
		return models.VendorScore{}, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	if err := u.events.Insert(ctx, ev); err != nil {
		return models.VendorScore{}, errors.NewScoreUpdateFailedError(ev.VendorID, err)
	}

	if u.isLateResponse(ev) {
		penalty := models.PerformanceEvent{
			ID:          uuid.NewString(),
			VendorID:    ev.VendorID,
			OrderID:     ev.OrderID,
			EventType:   models.EventLateResponse,
			AssignedAt:  ev.AssignedAt,
			RespondedAt: ev.RespondedAt,
			CreatedAt:   ev.CreatedAt,
		}
		if err := u.events.Insert(ctx, penalty); err != nil {
			return models.VendorScore{}, errors.NewScoreUpdateFailedError(ev.VendorID, err)
		}
		u.logger.Warn("late response recorded", map[string]interface{}{
			"vendorId": ev.VendorID,
			"orderId":  ev.OrderID,
			"minutes":  ev.RespondedAt.Sub(ev.AssignedAt).Minutes(),
		})
	}

	return u.Recompute(ctx, ev.VendorID, string(ev.EventType))
}

// Recompute rereads the vendor's rolling window, scores it and writes the
// live score row plus a history snapshot tagged with the trigger.
// Last-writer-wins across concurrent recomputes is safe because every
// write derives from the authoritative event log, not the prior score.
func (u *Updater) Recompute(ctx context.Context, vendorID, trigger string) (models.VendorScore, error) {
	since := time.Now().UTC().Add(-u.window)

	w, err := u.events.Window(ctx, vendorID, since)
	if err != nil {
		return models.VendorScore{}, errors.NewScoreUpdateFailedError(vendorID, err)
	}

	market := MarketPrices{}
	if ids := quotedProducts(w); len(ids) > 0 {
		market, err = u.events.MarketPrices(ctx, ids, since)
		if err != nil {
			return models.VendorScore{}, errors.NewScoreUpdateFailedError(vendorID, err)
		}
	}

	weights := u.weights.Current()
	components := u.strategy.Components(w, market)
	score := models.VendorScore{
		VendorID:     vendorID,
		Components:   components,
		OverallScore: Overall(components, weights),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := u.scores.Upsert(ctx, score); err != nil {
		return models.VendorScore{}, errors.NewScoreUpdateFailedError(vendorID, err)
	}
	if err := u.scores.AppendHistory(ctx, models.ScoreHistoryEntry{
		ID:           uuid.NewString(),
		VendorID:     vendorID,
		TriggerEvent: trigger,
		Components:   components,
		OverallScore: score.OverallScore,
		CreatedAt:    score.UpdatedAt,
	}); err != nil {
		return models.VendorScore{}, errors.NewScoreUpdateFailedError(vendorID, err)
	}

	metrics.ScoreUpdates.WithLabelValues(trigger).Inc()
	u.logger.Debug("vendor score recomputed", map[string]interface{}{
		"vendorId": vendorID,
		"trigger":  trigger,
		"overall":  score.OverallScore,
	})
	return score, nil
}

// GetScore returns the vendor's current score row.
func (u *Updater) GetScore(ctx context.Context, vendorID string) (models.VendorScore, error) {
	return u.scores.Get(ctx, vendorID)
}

func (u *Updater) isLateResponse(ev models.PerformanceEvent) bool {
	if ev.EventType != models.EventAccepted && ev.EventType != models.EventRejected {
		return false
	}
	if ev.RespondedAt == nil || ev.AssignedAt.IsZero() {
		return false
	}
	return ev.RespondedAt.Sub(ev.AssignedAt) > u.lateAfter
}

func validateEvent(ev models.PerformanceEvent) error {
	if ev.VendorID == "" {
		return errors.NewEventValidationFailedError("vendorId is required")
	}
	if ev.OrderID == "" {
		return errors.NewEventValidationFailedError("orderId is required")
	}
	switch ev.EventType {
	case models.EventAssigned, models.EventAccepted, models.EventRejected,
		models.EventDelivered, models.EventCancelled, models.EventLateResponse:
	default:
		return errors.NewEventValidationFailedError("unknown eventType: " + string(ev.EventType))
	}
	if ev.AssignedAt.IsZero() {
		return errors.NewEventValidationFailedError("assignedAt is required")
	}
	return nil
}

func quotedProducts(w Window) []string {
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(w.Quotes))
	for _, q := range w.Quotes {
		if _, ok := seen[q.ProductID]; ok {
			continue
		}
		seen[q.ProductID] = struct{}{}
		ids = append(ids, q.ProductID)
	}
	return ids
}
