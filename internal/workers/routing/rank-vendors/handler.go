// internal/workers/routing/rank-vendors/handler.go
package rankvendors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/metrics"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/validation"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/routing"
)

const (
	TaskType = "rank-vendors"
)

// VendorRanker is the ranking engine slice this worker drives.
type VendorRanker interface {
	RankVendors(ctx context.Context, productID string, quantity int, opts routing.RankOptions) ([]models.RankedVendor, error)
}

type Handler struct {
	config       *Config
	ranker       VendorRanker
	errorHandler *errors.ErrorHandler
	inputSchema  map[string]interface{}
	logger       logger.Logger
}

func NewHandler(config *Config, ranker VendorRanker, errorHandler *errors.ErrorHandler, inputSchema map[string]interface{}, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		ranker:       ranker,
		errorHandler: errorHandler,
		inputSchema:  inputSchema,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if result, err := validation.ValidatePayload(h.inputSchema, []byte(job.Variables)); err == nil && !result.Valid {
		h.fail(ctx, client, job, errors.NewPayloadInvalidError(TaskType, result.Summary()))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewPayloadInvalidError(TaskType, err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	candidates, err := h.ranker.RankVendors(ctx, input.ProductID, input.Quantity, routing.RankOptions{
		MinOverallScore: input.MinOverallScore,
		TopN:            input.TopN,
		Exclude:         input.ExcludeVendors,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ProductID:      input.ProductID,
		Candidates:     candidates,
		ChosenVendorID: candidates[0].VendorID,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func errorCode(err error) string {
	var stdErr *errors.StandardError
	if goerrors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "INTERNAL_ERROR"
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
