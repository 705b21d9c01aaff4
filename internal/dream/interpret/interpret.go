// Package interpret turns free-text ideas into normalized briefs by asking a
// text model for JSON and repairing whatever comes back.
package interpret

import (
	"context"
	"errors"
	"strings"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/lang"

	"go.opentelemetry.io/otel/attribute"
)

var ErrEmptyModelReply = errors.New("MODEL_RESPONSE_EMPTY")

const (
	DefaultAttempts = 2
	DefaultDelay    = 800 * time.Millisecond
)

// JSONModel asks a model for a single JSON object.
type JSONModel interface {
	InvokeJSON(ctx context.Context, system, user, schemaHint string) (map[string]interface{}, error)
}

// Briefer is anything that produces a brief from user text.
type Briefer interface {
	Interpret(ctx context.Context, text string) brief.Brief
}

// Options is the retry budget for model calls. Attempts <= 0 takes
// DefaultAttempts and a negative Delay takes DefaultDelay; a zero Delay retries
// immediately.
type Options struct {
	Attempts int
	Delay    time.Duration
}

type Interpreter struct {
	model  JSONModel
	opts   Options
	logger logger.Logger
	obs    *observability.Observability
}

func New(model JSONModel, opts Options, log logger.Logger, obs *observability.Observability) *Interpreter {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay < 0 {
		opts.Delay = DefaultDelay
	}
	return &Interpreter{
		model:  model,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "interpreter"}),
		obs:    obs,
	}
}

// Interpret returns a normalized brief or, when the model cannot produce one,
// the clarification brief. It never fails.
func (i *Interpreter) Interpret(ctx context.Context, text string) brief.Brief {
	code := lang.Detect(text)
	ctx, span := i.obs.StartSpan(ctx, "interpret.brief", attribute.String("lang", string(code)))
	defer span.End()

	i.logger.Debug("language detected", map[string]interface{}{"lang": code})

	raw, err := i.ask(ctx, text)
	if err != nil {
		i.logger.Warn("interpretation fell back to clarification", map[string]interface{}{
			"lang":  code,
			"error": err.Error(),
		})
		metrics.BriefsTotal.WithLabelValues("clarify").Inc()
		return brief.Clarify(code, "")
	}

	if intent, _ := raw["intent"].(string); strings.TrimSpace(intent) == brief.IntentClarify {
		notes, _ := raw["notes"].(string)
		metrics.BriefsTotal.WithLabelValues("clarify").Inc()
		return brief.Clarify(code, strings.TrimSpace(notes))
	}

	i.checkSchema(raw)

	b := brief.Normalize(raw, code)
	span.SetAttributes(attribute.String("product_type", b.ProductType))
	metrics.BriefsTotal.WithLabelValues("brief").Inc()
	i.logger.Info("brief interpreted", map[string]interface{}{
		"lang":        code,
		"productType": b.ProductType,
		"tagCount":    len(b.Tags),
	})
	return b
}

func (i *Interpreter) ask(ctx context.Context, text string) (map[string]interface{}, error) {
	var lastErr error
	for attempt := 1; attempt <= i.opts.Attempts; attempt++ {
		if attempt > 1 && i.opts.Delay > 0 {
			select {
			case <-time.After(i.opts.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := i.model.InvokeJSON(ctx, SystemPrompt, text, BriefSchema.String())
		if err == nil && raw == nil {
			err = ErrEmptyModelReply
		}
		if err == nil {
			return raw, nil
		}

		lastErr = err
		metrics.ModelAttemptsFailed.Inc()
		i.logger.Warn("model attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// checkSchema only reports; the normalizer repairs whatever is wrong.
func (i *Interpreter) checkSchema(raw map[string]interface{}) {
	res, err := BriefSchema.Validate(raw)
	if err != nil || res.Valid {
		return
	}
	i.logger.Debug("model output violates brief schema", map[string]interface{}{
		"violations": res.GetErrorMessages(),
	})
}
