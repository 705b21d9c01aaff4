// internal/workers/dream/create-from-idea/handler.go
package createfromidea

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "dreamforge-workers/internal/common/errors"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/interpret"
	"dreamforge-workers/internal/dream/media"
	"dreamforge-workers/internal/models"
	"dreamforge-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "create-from-idea"

	DefaultUserID     = "user_unknown"
	defaultUploadName = "upload.bin"
	defaultUploadType = "application/octet-stream"
	maxTitleRunes     = 64
)

var (
	ErrEmptyIdea     = errors.New("EMPTY_IDEA")
	ErrInvalidUpload = errors.New("INVALID_UPLOAD")
	ErrUploadFailed  = errors.New("UPLOAD_FAILED")
	ErrConversation  = errors.New("CONVERSATION_WRITE_FAILED")
)

type Objects interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type Conversations interface {
	EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, error)
	PutMessage(ctx context.Context, m store.MessageInput) (models.Message, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, b brief.Brief, userID string) *assets.Output
}

type Publisher interface {
	CreateProductAndListing(ctx context.Context, userID string, pkg assets.Package, mediaKeys []string, priceCents int) (models.ListingIDs, error)
	PriceOrDefault(cents int) int
	Currency() string
}

// Dependencies groups the collaborators of the pipeline.
type Dependencies struct {
	Briefer       interpret.Briefer
	Generator     Generator
	Publisher     Publisher
	Conversations Conversations
	Objects       Objects
}

type Handler struct {
	config     *Config
	deps       Dependencies
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, deps Dependencies, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		deps:       deps,
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
		h.failJob(client, job, classify(err), start)
		return
	}

	h.completeJob(client, job, output, start)
}

func classify(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrUploadFailed):
		return apperrors.NewStoragePutFailedError("upload", err)
	case errors.Is(err, ErrConversation):
		return apperrors.NewRecordWriteFailedError("conversations", err)
	case errors.Is(err, ErrEmptyIdea), errors.Is(err, ErrInvalidUpload):
		return apperrors.NewInvalidInputError(err.Error())
	default:
		return apperrors.NewRecordWriteFailedError("products", err)
	}
}

// execute runs the whole pipeline in one pass. Nothing is compensated: a failure
// after the upload or asset writes leaves those objects in place.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	idea := strings.TrimSpace(input.Idea)
	if idea == "" {
		return nil, ErrEmptyIdea
	}
	userID := input.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	ctx, span := h.obs.StartSpan(ctx, "pipeline.create_from_idea", attribute.String("user_id", userID))
	defer span.End()

	out := &Output{
		PriceCents: h.deps.Publisher.PriceOrDefault(input.PriceCents),
		Currency:   h.deps.Publisher.Currency(),
	}

	uploadKey, err := h.upload(ctx, userID, input.Upload, &out.Uploaded)
	if err != nil {
		return nil, err
	}

	conv, err := h.deps.Conversations.EnsureConversation(ctx, models.Conversation{
		ConversationID: store.NewID("conv"),
		UserID:         userID,
		Title:          conversationTitle(input.ConversationTitle, idea),
		ModelID:        h.config.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversation, err)
	}
	out.ConversationID = conv.ConversationID

	var userMedia []string
	if uploadKey != "" {
		userMedia = []string{uploadKey}
	}
	if err := h.message(ctx, conv.ConversationID, models.RoleUser, idea, userMedia); err != nil {
		return nil, err
	}

	b := h.deps.Briefer.Interpret(ctx, idea)
	out.Brief = b
	if err := h.messageJSON(ctx, conv.ConversationID, b, nil); err != nil {
		return nil, err
	}

	if b.IsClarify() {
		out.NeedsClarification = true
		h.logger.Info("idea needs clarification", map[string]interface{}{
			"conversationId": conv.ConversationID,
		})
		return out, nil
	}

	prompt := b.DesignPrompt
	if prompt == "" {
		prompt = idea
	}
	gen := h.deps.Generator.Generate(ctx, prompt, b, userID)
	keys := gen.AllKeys()
	design := &Design{
		Output: *gen,
		Media:  media.Describe(ctx, h.deps.Objects, h.config.AssetsBucket, keys, h.config.URLTTL, h.logger),
	}
	out.Design = design
	if err := h.messageJSON(ctx, conv.ConversationID, map[string]interface{}{"design": design}, keys); err != nil {
		return nil, err
	}

	ids, err := h.deps.Publisher.CreateProductAndListing(ctx, userID, gen.Package, keys, input.PriceCents)
	if err != nil {
		return nil, err
	}
	out.IDs = &ids

	// the listing exists now; a lost audit message must not trigger a retry
	if err := h.messageJSON(ctx, conv.ConversationID, map[string]interface{}{"ids": ids}, nil); err != nil {
		h.logger.Warn("ids message not recorded", map[string]interface{}{
			"conversationId": conv.ConversationID,
			"error":          err.Error(),
		})
	}

	out.PreviewURL = media.PickPreview(design.Media)

	h.logger.Info("idea published", map[string]interface{}{
		"conversationId": conv.ConversationID,
		"productId":      ids.ProductID,
		"listingId":      ids.ListingID,
		"mediaKeys":      len(keys),
		"assetErrors":    len(gen.Errors),
	})
	return out, nil
}

func (h *Handler) upload(ctx context.Context, userID string, up *Upload, rec *Uploaded) (string, error) {
	if up == nil {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(up.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	name := path.Base(strings.ReplaceAll(up.FileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = defaultUploadName
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = defaultUploadType
	}

	key := fmt.Sprintf("uploads/%s/%s_%s", userID, strings.ReplaceAll(uuid.NewString(), "-", ""), name)
	if err := h.deps.Objects.Put(ctx, h.config.UploadsBucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	rec.Key, rec.ContentType = &key, &contentType
	h.logger.Info("upload stored", map[string]interface{}{
		"key":   key,
		"bytes": len(data),
	})
	return key, nil
}

func (h *Handler) message(ctx context.Context, conversationID, role, content string, mediaKeys []string) error {
	_, err := h.deps.Conversations.PutMessage(ctx, store.MessageInput{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		MediaKeys:      mediaKeys,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversation, err)
	}
	return nil
}

func (h *Handler) messageJSON(ctx context.Context, conversationID string, v interface{}, mediaKeys []string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", ErrConversation, err)
	}
	return h.message(ctx, conversationID, models.RoleAssistant, string(body), mediaKeys)
}

// conversationTitle prefers the caller's title, else the first 64 characters of the idea.
func conversationTitle(title, idea string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if utf8.RuneCountInString(idea) <= maxTitleRunes {
		return idea
	}
	return string([]rune(idea)[:maxTitleRunes]) + "…"
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
		"jobKey":         job.Key,
		"conversationId": output.ConversationID,
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
