// internal/workers/dream/list-products/handler.go
package listproducts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "dreamforge-workers/internal/common/errors"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/media"
	"dreamforge-workers/internal/models"
	"dreamforge-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "list-products"
)

var (
	ErrMissingOwner = errors.New("MISSING_OWNER")
)

type ProductLister interface {
	ListProductsByOwner(ctx context.Context, q store.ProductQuery) (*store.ProductPage, error)
}

type Handler struct {
	config     *Config
	products   ProductLister
	presigner  media.Presigner
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, products ProductLister, presigner media.Presigner, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		products:   products,
		presigner:  presigner,
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
		case errors.Is(err, store.ErrInvalidPageToken):
			stdErr = apperrors.NewInvalidPageTokenError(err)
		case errors.Is(err, ErrMissingOwner):
			stdErr = apperrors.NewInvalidInputError(err.Error())
		default:
			stdErr = apperrors.NewRecordScanFailedError("products", err)
		}
		h.failJob(client, job, stdErr, start)
		return
	}

	h.completeJob(client, job, output, start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		owner = strings.TrimSpace(input.UserID)
	}
	if owner == "" {
		return nil, ErrMissingOwner
	}
	requireMedia := true
	if input.RequireMedia != nil {
		requireMedia = *input.RequireMedia
	}
	limit := store.ClampLimit(input.Limit)

	page, err := h.products.ListProductsByOwner(ctx, store.ProductQuery{
		OwnerID:      owner,
		Limit:        limit,
		PageToken:    input.PageToken,
		Status:       input.Status,
		RequireMedia: requireMedia,
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.ProductView, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, h.view(ctx, p))
	}

	out := &Output{
		Items: items,
		Count: len(items),
		AppliedFilters: AppliedFilters{
			Owner: owner,
			Limit: limit,
		},
	}
	if input.Status != "" {
		status := input.Status
		out.AppliedFilters.Status = &status
	}
	if page.NextPageToken != "" {
		next := page.NextPageToken
		out.NextPageToken = &next
	}

	h.logger.Info("products listed", map[string]interface{}{
		"owner":   owner,
		"count":   out.Count,
		"hasNext": out.NextPageToken != nil,
	})
	return out, nil
}

func (h *Handler) view(ctx context.Context, p models.Product) models.ProductView {
	status := p.Status
	if status == "" {
		status = models.ProductStatusDraft
	}
	return models.ProductView{
		ProductID:   p.ProductID,
		Title:       p.Title,
		Description: p.Description,
		Status:      status,
		OwnerID:     p.OwnerID,
		Media:       media.Describe(ctx, h.presigner, h.config.AssetsBucket, p.MediaKeys, h.config.URLTTL, h.logger),
	}
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
		"jobKey": job.Key,
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
