package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/metrics"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/observability"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// VendorLister enumerates every vendor that has a score row.
type VendorLister interface {
	ListVendorIDs(ctx context.Context) ([]string, error)
}

// StaleScanner finds ASSIGNED events older than the late-response
// threshold that never got an accept or reject.
type StaleScanner interface {
	UnansweredAssignments(ctx context.Context, before time.Time) ([]models.PerformanceEvent, error)
}

// Sweeper runs the periodic drift-correction pass: it converts unanswered
// assignments into LATE_RESPONSE events and recomputes every vendor's
// score from the current window. Only one sweep runs at a time; an
// overlapping tick is skipped with a warning.
type Sweeper struct {
	updater     *Updater
	vendors     VendorLister
	stale       StaleScanner
	events      EventLog
	interval    time.Duration
	concurrency int
	obs         *observability.Observability
	logger      logger.Logger

	mu sync.Mutex
}

type SweeperConfig struct {
	Interval    time.Duration
	Concurrency int
}

func NewSweeper(updater *Updater, vendors VendorLister, stale StaleScanner, events EventLog, cfg SweeperConfig, obs *observability.Observability, log logger.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Sweeper{
		updater:     updater,
		vendors:     vendors,
		stale:       stale,
		events:      events,
		interval:    cfg.Interval,
		concurrency: cfg.Concurrency,
		obs:         obs,
		logger:      log,
	}
}

// Run blocks, sweeping on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("score sweep loop stopped", nil)
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Returns false if a sweep was already
// in flight and this one was skipped.
func (s *Sweeper) RunOnce(ctx context.Context) bool {
	if !s.mu.TryLock() {
		s.logger.Warn("score sweep skipped, previous sweep still running", nil)
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return false
	}
	defer s.mu.Unlock()

	start := time.Now()
	status := "completed"

	if err := s.sweep(ctx); err != nil {
		status = "failed"
		s.logger.Error("score sweep failed", map[string]interface{}{"error": err.Error()})
	}

	metrics.SweepRuns.WithLabelValues(status).Inc()
	if s.obs != nil {
		s.obs.RecordSweepDuration(ctx, time.Since(start), status)
	}
	return true
}

func (s *Sweeper) sweep(ctx context.Context) error {
	now := time.Now().UTC()

	// Unanswered assignments past the threshold become LATE_RESPONSE
	// events, with the detection time standing in for the response time.
	stale, err := s.stale.UnansweredAssignments(ctx, now.Add(-s.updater.LateThreshold()))
	if err != nil {
		return err
	}
	for _, ev := range stale {
		respondedAt := now
		penalty := models.PerformanceEvent{
			ID:          uuid.NewString(),
			VendorID:    ev.VendorID,
			OrderID:     ev.OrderID,
			EventType:   models.EventLateResponse,
			AssignedAt:  ev.AssignedAt,
			RespondedAt: &respondedAt,
			CreatedAt:   now,
		}
		if err := s.events.Insert(ctx, penalty); err != nil {
			s.logger.Error("failed to record late response during sweep", map[string]interface{}{
				"vendorId": ev.VendorID,
				"orderId":  ev.OrderID,
				"error":    err.Error(),
			})
		}
	}

	vendorIDs, err := s.vendors.ListVendorIDs(ctx)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, vendorID := range vendorIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.updater.Recompute(ctx, id, models.TriggerPeriodicSweep); err != nil {
				s.logger.Error("sweep recompute failed", map[string]interface{}{
					"vendorId": id,
					"error":    err.Error(),
				})
			}
		}(vendorID)
	}
	wg.Wait()

	s.logger.Info("score sweep completed", map[string]interface{}{
		"vendors":       len(vendorIDs),
		"lateResponses": len(stale),
	})
	return nil
}
