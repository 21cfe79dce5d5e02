package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type fakeEventLog struct {
	mu       sync.Mutex
	inserted []models.PerformanceEvent
	window   Window
	market   MarketPrices
}

func (f *fakeEventLog) Insert(_ context.Context, ev models.PerformanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ev)
	return nil
}

func (f *fakeEventLog) Window(_ context.Context, _ string, _ time.Time) (Window, error) {
	return f.window, nil
}

func (f *fakeEventLog) MarketPrices(_ context.Context, _ []string, _ time.Time) (MarketPrices, error) {
	return f.market, nil
}

type fakeScoreState struct {
	mu      sync.Mutex
	scores  map[string]models.VendorScore
	history []models.ScoreHistoryEntry
}

func newFakeScoreState() *fakeScoreState {
	return &fakeScoreState{scores: map[string]models.VendorScore{}}
}

func (f *fakeScoreState) Get(_ context.Context, vendorID string) (models.VendorScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[vendorID]
	if !ok {
		return models.VendorScore{}, stderrors.NewVendorScoreNotFoundError(vendorID)
	}
	return s, nil
}

func (f *fakeScoreState) Upsert(_ context.Context, score models.VendorScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[score.VendorID] = score
	return nil
}

func (f *fakeScoreState) AppendHistory(_ context.Context, e models.ScoreHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, e)
	return nil
}

func newTestUpdater(events *fakeEventLog, scores *fakeScoreState) *Updater {
	weights, _ := NewWeightsProvider(DefaultWeights())
	return NewUpdater(events, scores, NewRuleBased(), weights,
		UpdaterConfig{WindowDays: 90, LateResponseMinutes: 30}, logger.NewNoOpLogger())
}

func TestRecordEvent_AppendsAndRecomputes(t *testing.T) {
	events := &fakeEventLog{window: Window{Assigned: 10, Accepted: 9}}
	scores := newFakeScoreState()
	u := newTestUpdater(events, scores)

	assigned := time.Now().UTC().Add(-5 * time.Minute)
	responded := time.Now().UTC()
	score, err := u.RecordEvent(context.Background(), models.PerformanceEvent{
		VendorID:    "vendor-1",
		OrderID:     "order-1",
		EventType:   models.EventAccepted,
		AssignedAt:  assigned,
		RespondedAt: &responded,
	})
	require.NoError(t, err)

	require.Len(t, events.inserted, 1)
	assert.NotEmpty(t, events.inserted[0].ID)
	assert.Equal(t, 100.0, score.Components.AcceptanceRate)

	require.Len(t, scores.history, 1)
	assert.Equal(t, string(models.EventAccepted), scores.history[0].TriggerEvent)
	assert.Equal(t, score.OverallScore, scores.history[0].OverallScore)
}

func TestRecordEvent_LateResponsePenalty(t *testing.T) {
	events := &fakeEventLog{}
	scores := newFakeScoreState()
	u := newTestUpdater(events, scores)

	assigned := time.Now().UTC().Add(-45 * time.Minute)
	responded := time.Now().UTC()
	_, err := u.RecordEvent(context.Background(), models.PerformanceEvent{
		VendorID:    "vendor-1",
		OrderID:     "order-1",
		EventType:   models.EventAccepted,
		AssignedAt:  assigned,
		RespondedAt: &responded,
	})
	require.NoError(t, err)

	// The slow accept records both the ACCEPTED event and a LATE_RESPONSE
	// penalty.
	require.Len(t, events.inserted, 2)
	assert.Equal(t, models.EventAccepted, events.inserted[0].EventType)
	assert.Equal(t, models.EventLateResponse, events.inserted[1].EventType)
	assert.Equal(t, "order-1", events.inserted[1].OrderID)
}

func TestRecordEvent_OnTimeResponseNoPenalty(t *testing.T) {
	events := &fakeEventLog{}
	scores := newFakeScoreState()
	u := newTestUpdater(events, scores)

	assigned := time.Now().UTC().Add(-10 * time.Minute)
	responded := time.Now().UTC()
	_, err := u.RecordEvent(context.Background(), models.PerformanceEvent{
		VendorID:    "vendor-1",
		OrderID:     "order-1",
		EventType:   models.EventRejected,
		AssignedAt:  assigned,
		RespondedAt: &responded,
	})
	require.NoError(t, err)
	assert.Len(t, events.inserted, 1)
}

func TestRecordEvent_Validation(t *testing.T) {
	u := newTestUpdater(&fakeEventLog{}, newFakeScoreState())
	now := time.Now().UTC()

	tests := []struct {
		name string
		ev   models.PerformanceEvent
	}{
		{"missing vendor", models.PerformanceEvent{OrderID: "o", EventType: models.EventAssigned, AssignedAt: now}},
		{"missing order", models.PerformanceEvent{VendorID: "v", EventType: models.EventAssigned, AssignedAt: now}},
		{"unknown event type", models.PerformanceEvent{VendorID: "v", OrderID: "o", EventType: "SHIPPED", AssignedAt: now}},
		{"missing assignedAt", models.PerformanceEvent{VendorID: "v", OrderID: "o", EventType: models.EventAssigned}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.RecordEvent(context.Background(), tt.ev)
			require.Error(t, err)
			var stdErr *stderrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, stderrors.ErrCodeEventValidationFailed, stdErr.Code)
		})
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	events := &fakeEventLog{
		window: Window{
			Assigned: 10, Accepted: 6, Delivered: 5, Cancelled: 1,
			ResponseCount: 6, TotalResponseMinutes: 90,
			Quotes: []Quote{{ProductID: "prod-1", Price: 100}},
		},
		market: MarketPrices{"prod-1": {Min: 100, Max: 120}},
	}
	scores := newFakeScoreState()
	u := newTestUpdater(events, scores)

	first, err := u.Recompute(context.Background(), "vendor-1", models.TriggerPeriodicSweep)
	require.NoError(t, err)
	second, err := u.Recompute(context.Background(), "vendor-1", models.TriggerPeriodicSweep)
	require.NoError(t, err)

	assert.Equal(t, first.Components, second.Components)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, 62.5, first.Components.AcceptanceRate)
}
