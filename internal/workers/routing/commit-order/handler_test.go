// internal/workers/routing/commit-order/handler_test.go
package commitorder

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

type fakeCommitter struct {
	err       error
	gotGroups []models.SplitGroup
}

func (f *fakeCommitter) CommitOrder(_ context.Context, req models.RoutingRequest, groups []models.SplitGroup) (string, error) {
	f.gotGroups = groups
	if f.err != nil {
		return "", f.err
	}
	return req.OrderID, nil
}

func newTestHandler(committer *fakeCommitter) *Handler {
	return NewHandler(&Config{Timeout: 10 * time.Second}, committer,
		stderrors.NewErrorHandler(logger.NewNoOpLogger()), nil, logger.NewNoOpLogger())
}

func validInput() *Input {
	return &Input{
		OrderID: "order-1",
		Items: []models.OrderLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
		Selections: []models.VendorSelection{
			{ProductID: "prod-1", Quantity: 2, VendorID: "vendor-a", UnitPrice: 10},
			{ProductID: "prod-2", Quantity: 1, VendorID: "vendor-b", UnitPrice: 5},
		},
	}
}

func TestExecute_SplitsAndCommits(t *testing.T) {
	committer := &fakeCommitter{}
	h := newTestHandler(committer)

	output, err := h.Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "order-1", output.CommittedOrderID)
	require.Len(t, output.Groups, 2)
	assert.Equal(t, "vendor-a", output.Groups[0].VendorID)
	assert.Equal(t, output.Groups, committer.gotGroups)
}

func TestExecute_IncompleteSelectionNeverCommits(t *testing.T) {
	committer := &fakeCommitter{}
	h := newTestHandler(committer)

	input := validInput()
	input.Selections = input.Selections[:1]

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeIncompleteAllocation, stdErr.Code)
	assert.Nil(t, committer.gotGroups)
}

func TestExecute_StockConflictPassesThrough(t *testing.T) {
	committer := &fakeCommitter{err: stderrors.NewStockConflictError("vendor-a", "prod-1", 1, 2)}
	h := newTestHandler(committer)

	_, err := h.Execute(context.Background(), validInput())
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeStockConflict, stdErr.Code)
}
