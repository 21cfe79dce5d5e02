// internal/workers/data-access/query-vendor-score/handler_test.go
package queryvendorscore

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

type fakeScores struct {
	score models.VendorScore
	err   error
}

func (f *fakeScores) Get(_ context.Context, _ string) (models.VendorScore, error) {
	return f.score, f.err
}

func newTestHandler(scores *fakeScores) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, scores,
		stderrors.NewErrorHandler(logger.NewNoOpLogger()), nil, logger.NewNoOpLogger())
}

func TestExecute_ReturnsScore(t *testing.T) {
	scores := &fakeScores{score: models.VendorScore{
		VendorID:     "vendor-1",
		OverallScore: 91.4,
		Components:   models.ComponentScores{ResponseSpeed: 95},
		UpdatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := newTestHandler(scores)

	output, err := h.Execute(context.Background(), &Input{VendorID: "vendor-1"})
	require.NoError(t, err)
	assert.Equal(t, "vendor-1", output.VendorID)
	assert.Equal(t, 91.4, output.OverallScore)
	assert.Equal(t, 95.0, output.Components.ResponseSpeed)
}

func TestExecute_MissingVendorID(t *testing.T) {
	h := newTestHandler(&fakeScores{})

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodePayloadInvalid, stdErr.Code)
}

func TestExecute_NotFoundPassesThrough(t *testing.T) {
	h := newTestHandler(&fakeScores{err: stderrors.NewVendorScoreNotFoundError("vendor-x")})

	_, err := h.Execute(context.Background(), &Input{VendorID: "vendor-x"})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeVendorScoreNotFound, stdErr.Code)
}
