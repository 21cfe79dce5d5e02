// internal/workers/routing/route-order/handler_test.go
package routeorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/routing"
)

type fakePipeline struct {
	result *routing.Result
	err    error
	gotReq models.RoutingRequest
}

func (f *fakePipeline) Run(_ context.Context, req models.RoutingRequest) (*routing.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

func createTestConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

func TestExecute_Success(t *testing.T) {
	pipeline := &fakePipeline{result: &routing.Result{
		CommittedOrderID: "order-1",
		Attempts:         1,
		Groups: []models.SplitGroup{{
			VendorID: "vendor-a",
			Items:    []models.SplitItem{{ProductID: "prod-1", Quantity: 2, UnitPrice: 10}},
			Subtotal: 20,
		}},
	}}
	h := NewHandler(createTestConfig(), pipeline,
		stderrors.NewErrorHandler(logger.NewNoOpLogger()), nil, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), &Input{
		OrderID: "order-1",
		Items:   []models.OrderLine{{ProductID: "prod-1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "order-1", output.CommittedOrderID)
	assert.Equal(t, 1, output.Attempts)
	require.Len(t, output.Groups, 1)
	assert.Equal(t, "order-1", pipeline.gotReq.OrderID)
	require.Len(t, pipeline.gotReq.Items, 1)
}

func TestExecute_PipelineErrorPassesThrough(t *testing.T) {
	pipeline := &fakePipeline{
		err: stderrors.NewRoutingExhaustedError("order-1", 3, "prod-1", "vendor-a", "STOCK"),
	}
	h := NewHandler(createTestConfig(), pipeline,
		stderrors.NewErrorHandler(logger.NewNoOpLogger()), nil, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{
		OrderID: "order-1",
		Items:   []models.OrderLine{{ProductID: "prod-1", Quantity: 2}},
	})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeRoutingExhausted, stdErr.Code)
}
