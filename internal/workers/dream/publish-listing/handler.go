// internal/workers/dream/publish-listing/handler.go
package publishlisting

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
	"dreamforge-workers/internal/dream/listing"
	"dreamforge-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "publish-listing"
)

var (
	ErrMissingPackage = errors.New("MISSING_PACKAGE")
	ErrMissingUser    = errors.New("MISSING_USER_ID")
)

// Publisher is satisfied by *listing.Publisher.
type Publisher interface {
	CreateProductAndListing(ctx context.Context, userID string, pkg assets.Package, mediaKeys []string, priceCents int) (models.ListingIDs, error)
	PriceOrDefault(cents int) int
	Currency() string
}

type Handler struct {
	config     *Config
	publisher  Publisher
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, publisher Publisher, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		publisher:  publisher,
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
		var stdErr *apperrors.StandardError
		switch {
		case errors.Is(err, listing.ErrProductWrite):
			stdErr = apperrors.NewRecordWriteFailedError("products", err)
		case errors.Is(err, listing.ErrListingWrite):
			stdErr = apperrors.NewRecordWriteFailedError("listings", err)
		default:
			stdErr = apperrors.NewInvalidInputError(err.Error())
		}
		h.failJob(client, job, stdErr, start)
		return
	}

	h.completeJob(client, job, output, start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Package == nil {
		return nil, ErrMissingPackage
	}
	if input.UserID == "" {
		return nil, ErrMissingUser
	}

	ids, err := h.publisher.CreateProductAndListing(ctx, input.UserID, *input.Package, input.MediaKeys, input.PriceCents)
	if err != nil {
		return nil, err
	}

	return &Output{
		ProductID:  ids.ProductID,
		ListingID:  ids.ListingID,
		PriceCents: h.publisher.PriceOrDefault(input.PriceCents),
		Currency:   h.publisher.Currency(),
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
		"listingId": output.ListingID,
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
