// internal/workers/scoring/record-vendor-event/handler_test.go
package recordvendorevent

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

type fakeRecorder struct {
	score    models.VendorScore
	err      error
	gotEvent models.PerformanceEvent
}

func (f *fakeRecorder) RecordEvent(_ context.Context, ev models.PerformanceEvent) (models.VendorScore, error) {
	f.gotEvent = ev
	return f.score, f.err
}

func newTestHandler(recorder *fakeRecorder) *Handler {
	return NewHandler(&Config{Timeout: 10 * time.Second}, recorder,
		stderrors.NewErrorHandler(logger.NewNoOpLogger()), nil, logger.NewNoOpLogger())
}

func TestExecute_RecordsEventAndReturnsScore(t *testing.T) {
	recorder := &fakeRecorder{score: models.VendorScore{
		VendorID:     "vendor-1",
		OverallScore: 87.5,
		Components:   models.ComponentScores{AcceptanceRate: 100},
		UpdatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := newTestHandler(recorder)

	assigned := time.Now().UTC().Add(-5 * time.Minute)
	responded := time.Now().UTC()
	output, err := h.Execute(context.Background(), &Input{
		VendorID:    "vendor-1",
		OrderID:     "order-1",
		EventType:   "ACCEPTED",
		AssignedAt:  assigned,
		RespondedAt: &responded,
	})
	require.NoError(t, err)
	assert.Equal(t, "vendor-1", output.VendorID)
	assert.Equal(t, 87.5, output.OverallScore)
	assert.Equal(t, models.EventAccepted, recorder.gotEvent.EventType)
	assert.Equal(t, assigned, recorder.gotEvent.AssignedAt)
}

func TestExecute_ValidationErrorPassesThrough(t *testing.T) {
	recorder := &fakeRecorder{err: stderrors.NewEventValidationFailedError("vendorId is required")}
	h := newTestHandler(recorder)

	_, err := h.Execute(context.Background(), &Input{EventType: "ACCEPTED"})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeEventValidationFailed, stdErr.Code)
}
