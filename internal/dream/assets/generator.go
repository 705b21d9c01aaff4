// Package assets produces and stores the media for a brief, one kind at a time.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/metrics"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/assets/builders"
	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/kinds"
	"dreamforge-workers/internal/dream/lang"
	"dreamforge-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrVideoDisabled   = errors.New("VIDEO_RENDERING_DISABLED")
	ErrClarifyingBrief = errors.New("BRIEF_NEEDS_CLARIFICATION")
)

const (
	DefaultDesignPrompt = "Genera un diseño creativo"
	descriptionPrefix   = "Generado automáticamente a partir de tu idea: "

	ContentTypePNG = "image/png"

	maxSubtitleRunes = 80
)

// ObjectStore writes one object.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// ImageModel invokes an image model with a vendor payload.
type ImageModel interface {
	InvokeImage(ctx context.Context, modelID string, body []byte) ([]byte, error)
}

type Options struct {
	Bucket       string
	ImageModelID string
	Provider     config.ImageProvider
	Policy       kinds.Policy
	VideoEnabled bool
	GIF          builders.GIFOptions
}

// Package is the seed handed to listing creation.
type Package struct {
	DesignPrompt         string      `json:"design_prompt"`
	Brief                brief.Brief `json:"brief"`
	SuggestedTitle       string      `json:"suggested_title"`
	SuggestedDescription string      `json:"suggested_description"`
}

// Output is the result of one generation. A missing key or an Errors entry is
// the only sign of a partial failure.
type Output struct {
	ImageKey   string            `json:"image_key,omitempty"`
	PDFKey     string            `json:"pdf_key,omitempty"`
	DocxKey    string            `json:"docx_key,omitempty"`
	RTFKey     string            `json:"rtf_key,omitempty"`
	TextKey    string            `json:"text_key,omitempty"`
	VideoKey   string            `json:"video_key,omitempty"`
	Model3DKey string            `json:"model3d_key,omitempty"`
	Kinds      []string          `json:"kinds"`
	MediaKeys  []string          `json:"media_keys"`
	Errors     map[string]string `json:"errors,omitempty"`
	Package    Package           `json:"package"`
}

// Result is the outcome of building and storing one kind.
type Result struct {
	Kind kinds.Kind
	Key  string
	// Field names the Output key the result lands in, e.g. "docx_key" or "rtf_key".
	Field string
	Err   error
}

type Generator struct {
	store  ObjectStore
	images ImageModel
	opts   Options
	logger logger.Logger
	obs    *observability.Observability
	now    func() time.Time
}

func NewGenerator(store ObjectStore, images ImageModel, opts Options, log logger.Logger, obs *observability.Observability) *Generator {
	if opts.Policy == "" {
		opts.Policy = kinds.PolicyTriple
	}
	return &Generator{
		store:  store,
		images: images,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "asset-generator"}),
		obs:    obs,
		now:    time.Now,
	}
}

// Generate builds every kind the brief routes to. Failures are recorded per
// kind and never abort the remaining kinds.
func (g *Generator) Generate(ctx context.Context, prompt string, b brief.Brief, userID string) *Output {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = b.DesignPrompt
	}
	if prompt == "" {
		prompt = DefaultDesignPrompt
	}

	out := &Output{
		Kinds:     []string{},
		MediaKeys: []string{},
		Package:   newPackage(prompt, b),
	}
	if b.IsClarify() {
		out.Errors = map[string]string{"brief": ErrClarifyingBrief.Error()}
		return out
	}

	selected := kinds.Decide(b.ProductType, b.Intent, g.opts.Policy)
	out.Kinds = kinds.Strings(selected)

	ctx, span := g.obs.StartSpan(ctx, "assets.generate",
		attribute.String("product_type", b.ProductType),
		attribute.StringSlice("kinds", out.Kinds),
	)
	defer span.End()

	base := BaseKey(userID, b.ProductType, b.Intent)
	for _, k := range selected {
		out.add(g.build(ctx, k, base, prompt, b))
	}

	g.logger.Info("assets generated", map[string]interface{}{
		"userId":    userID,
		"kinds":     out.Kinds,
		"mediaKeys": len(out.MediaKeys),
		"errors":    len(out.Errors),
	})
	return out
}

func newPackage(prompt string, b brief.Brief) Package {
	title := b.Intent
	if title == "" {
		title = models.DefaultProductTitle
	}
	return Package{
		DesignPrompt:         prompt,
		Brief:                b,
		SuggestedTitle:       title,
		SuggestedDescription: descriptionPrefix + b.Notes,
	}
}

func (o *Output) add(r Result) {
	if r.Err != nil {
		if o.Errors == nil {
			o.Errors = make(map[string]string)
		}
		o.Errors[string(r.Kind)] = r.Err.Error()
		metrics.AssetsTotal.WithLabelValues(string(r.Kind), "error").Inc()
		return
	}
	metrics.AssetsTotal.WithLabelValues(string(r.Kind), "ok").Inc()

	switch r.Field {
	case "image_key":
		o.ImageKey = r.Key
	case "pdf_key":
		o.PDFKey = r.Key
	case "docx_key":
		o.DocxKey = r.Key
	case "rtf_key":
		o.RTFKey = r.Key
	case "text_key":
		o.TextKey = r.Key
	case "video_key":
		o.VideoKey = r.Key
	case "model3d_key":
		o.Model3DKey = r.Key
	}
	for _, k := range o.MediaKeys {
		if k == r.Key {
			return
		}
	}
	o.MediaKeys = append(o.MediaKeys, r.Key)
}

// AllKeys lists the per-kind keys in fixed order followed by any other media
// keys, without duplicates.
func (o *Output) AllKeys() []string {
	keys := make([]string, 0, len(o.MediaKeys))
	seen := make(map[string]bool)
	for _, k := range append([]string{
		o.ImageKey, o.PDFKey, o.DocxKey, o.RTFKey, o.TextKey, o.VideoKey, o.Model3DKey,
	}, o.MediaKeys...) {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func (g *Generator) build(ctx context.Context, k kinds.Kind, base, prompt string, b brief.Brief) Result {
	res := Result{Kind: k}
	switch k {
	case kinds.Image:
		res.Field = "image_key"
		res.Key, res.Err = g.buildImage(ctx, base, prompt, b)
	case kinds.PDF:
		res.Field = "pdf_key"
		res.Key = base + ".pdf"
		res.Err = g.put(ctx, res.Key, builders.BriefPDF(b.Intent, b.Notes, g.now()), builders.ContentTypePDF)
	case kinds.DOCX, kinds.RTF:
		doc := g.document(prompt, b)
		res.Field = strings.TrimPrefix(doc.Ext, ".") + "_key"
		res.Key = base + doc.Ext
		res.Err = g.put(ctx, res.Key, doc.Data, doc.ContentType)
	case kinds.TXT:
		res.Field = "text_key"
		res.Key = base + builders.ExtTXT
		res.Err = g.put(ctx, res.Key, g.text(prompt, b), builders.ContentTypeTXT)
	case kinds.Video:
		res.Field = "video_key"
		res.Key, res.Err = g.buildVideo(ctx, base)
	case kinds.Model:
		res.Field = "model3d_key"
		res.Key = base + ".obj"
		res.Err = g.put(ctx, res.Key, builders.PlaceholderOBJ(b.Intent), builders.ContentTypeOBJ)
	default:
		res.Err = fmt.Errorf("no builder for kind %q", k)
	}

	if res.Err != nil {
		g.logger.Warn("asset kind failed", map[string]interface{}{
			"kind":  k,
			"error": res.Err.Error(),
		})
		res.Key = ""
	}
	return res
}

func (g *Generator) document(prompt string, b brief.Brief) builders.Document {
	if g.opts.Policy == kinds.PolicyRealBook {
		return builders.BookDocument(b, prompt, bookLanguage(prompt, b))
	}
	return builders.BriefDocument(b, prompt)
}

func (g *Generator) text(prompt string, b brief.Brief) []byte {
	if g.opts.Policy == kinds.PolicyRealBook {
		return builders.BookText(b, prompt, bookLanguage(prompt, b))
	}
	return builders.BriefText(b, prompt)
}

func bookLanguage(prompt string, b brief.Brief) lang.Code {
	return lang.Detect(b.Intent + " " + prompt + " " + b.Notes)
}

// buildImage prefers the configured image model and falls back to an SVG
// placeholder. Only a failing placeholder write is an error.
func (g *Generator) buildImage(ctx context.Context, base, prompt string, b brief.Brief) (string, error) {
	reason := g.opts.Provider.String()
	if g.opts.Provider.GeneratesImages() {
		key := base + ".png"
		err := g.modelImage(ctx, key, prompt)
		if err == nil {
			return key, nil
		}
		reason = "model_error"
		if errors.Is(err, ErrNoImageOutput) {
			reason = "empty_output"
		}
		g.logger.Warn("image model failed, using placeholder", map[string]interface{}{
			"modelId": g.opts.ImageModelID,
			"error":   err.Error(),
		})
	}

	metrics.PlaceholderImages.WithLabelValues(reason).Inc()
	title := b.Intent
	if title == "" {
		title = "Diseño generado"
	}
	key := PlaceholderKey(base, g.now())
	svg := builders.PlaceholderSVG(title, clip(b.Style, maxSubtitleRunes))
	if err := g.put(ctx, key, svg, builders.ContentTypeSVG); err != nil {
		return "", err
	}
	g.logger.Info("placeholder image stored", map[string]interface{}{
		"key":    key,
		"reason": reason,
	})
	return key, nil
}

func (g *Generator) modelImage(ctx context.Context, key, prompt string) error {
	body, err := imageRequest(g.opts.Provider, prompt)
	if err != nil {
		return err
	}
	resp, err := g.images.InvokeImage(ctx, g.opts.ImageModelID, body)
	if err != nil {
		return err
	}
	png, err := imageBytes(g.opts.Provider, resp)
	if err != nil {
		return err
	}
	return g.put(ctx, key, png, ContentTypePNG)
}

func (g *Generator) buildVideo(ctx context.Context, base string) (string, error) {
	if !g.opts.VideoEnabled {
		return "", ErrVideoDisabled
	}
	data, err := builders.PlaceholderGIF(g.opts.GIF)
	if err != nil {
		return "", err
	}
	key := base + ".gif"
	return key, g.put(ctx, key, data, builders.ContentTypeGIF)
}

func (g *Generator) put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := g.store.Put(ctx, g.opts.Bucket, key, body, contentType); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
