package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type fakeVendorLister struct {
	ids []string
}

func (f *fakeVendorLister) ListVendorIDs(_ context.Context) ([]string, error) {
	return f.ids, nil
}

type fakeStaleScanner struct {
	mu      sync.Mutex
	stale   []models.PerformanceEvent
	started chan struct{}
	release chan struct{}
	calls   int
}

func (f *fakeStaleScanner) UnansweredAssignments(_ context.Context, _ time.Time) ([]models.PerformanceEvent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		f.started = nil
		<-f.release
	}
	return f.stale, nil
}

func newTestSweeper(events *fakeEventLog, scores *fakeScoreState, vendors *fakeVendorLister, stale *fakeStaleScanner) *Sweeper {
	u := newTestUpdater(events, scores)
	return NewSweeper(u, vendors, stale, events,
		SweeperConfig{Interval: time.Hour, Concurrency: 2}, nil, logger.NewNoOpLogger())
}

func TestSweep_ConvertsStaleAssignmentsAndRecomputes(t *testing.T) {
	assigned := time.Now().UTC().Add(-2 * time.Hour)
	stale := &fakeStaleScanner{stale: []models.PerformanceEvent{
		{VendorID: "vendor-1", OrderID: "order-1", EventType: models.EventAssigned, AssignedAt: assigned},
	}}
	events := &fakeEventLog{window: Window{Assigned: 5, Accepted: 4}}
	scores := newFakeScoreState()
	vendors := &fakeVendorLister{ids: []string{"vendor-1", "vendor-2"}}

	s := newTestSweeper(events, scores, vendors, stale)
	require.True(t, s.RunOnce(context.Background()))

	require.Len(t, events.inserted, 1)
	penalty := events.inserted[0]
	assert.Equal(t, models.EventLateResponse, penalty.EventType)
	assert.Equal(t, "vendor-1", penalty.VendorID)
	assert.Equal(t, "order-1", penalty.OrderID)
	assert.Equal(t, assigned, penalty.AssignedAt)
	require.NotNil(t, penalty.RespondedAt)

	// Every listed vendor is recomputed with the sweep trigger.
	assert.Len(t, scores.scores, 2)
	require.Len(t, scores.history, 2)
	for _, h := range scores.history {
		assert.Equal(t, models.TriggerPeriodicSweep, h.TriggerEvent)
	}
}

func TestSweep_SingleFlight(t *testing.T) {
	stale := &fakeStaleScanner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	events := &fakeEventLog{}
	scores := newFakeScoreState()
	s := newTestSweeper(events, scores, &fakeVendorLister{}, stale)

	started := stale.started
	done := make(chan bool)
	go func() {
		done <- s.RunOnce(context.Background())
	}()

	<-started
	// A tick that fires while a sweep is still running is skipped.
	assert.False(t, s.RunOnce(context.Background()))
	close(stale.release)
	assert.True(t, <-done)
	assert.Equal(t, 1, stale.calls)
}

func TestSweep_NoStaleNoPenalties(t *testing.T) {
	events := &fakeEventLog{}
	scores := newFakeScoreState()
	s := newTestSweeper(events, scores, &fakeVendorLister{ids: []string{"vendor-1"}}, &fakeStaleScanner{})

	require.True(t, s.RunOnce(context.Background()))
	assert.Empty(t, events.inserted)
	assert.Len(t, scores.scores, 1)
}
