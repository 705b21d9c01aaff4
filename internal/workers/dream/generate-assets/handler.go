// internal/workers/dream/generate-assets/handler.go
package generateassets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "dreamforge-workers/internal/common/errors"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/brief"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-assets"
)

var (
	ErrMissingBrief = errors.New("MISSING_BRIEF")
)

// Generator is satisfied by *assets.Generator.
type Generator interface {
	Generate(ctx context.Context, prompt string, b brief.Brief, userID string) *assets.Output
}

type Handler struct {
	config     *Config
	generator  Generator
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, generator Generator, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		generator:  generator,
		obs:        obs,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)), start)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(err.Error()), start)
		return
	}

	h.completeJob(client, job, output, start)
}

// execute never fails once a brief is present. Per-kind failures travel in
// Output.Assets.Errors and the job still completes.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Brief == nil {
		return nil, ErrMissingBrief
	}

	out := h.generator.Generate(ctx, input.DesignPrompt, *input.Brief, input.UserID)

	if len(out.Errors) > 0 {
		h.logger.Warn("assets generated with errors", map[string]interface{}{
			"userId": input.UserID,
			"errors": out.Errors,
		})
	}

	return &Output{
		Assets:    out,
		MediaKeys: out.AllKeys(),
		Partial:   len(out.Errors) > 0,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(context.Background(), TaskType, "completed")
	h.obs.RecordJobDuration(context.Background(), TaskType, time.Since(start), "completed")
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":    job.Key,
		"mediaKeys": len(output.MediaKeys),
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(context.Background(), TaskType, "failed")
	h.obs.RecordJobDuration(context.Background(), TaskType, time.Since(start), "failed")
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
