package assets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/dream/assets/builders"
	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/kinds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type stored struct {
	bucket      string
	key         string
	body        []byte
	contentType string
}

type fakeStore struct {
	puts   []stored
	failOn string // key suffix that fails
}

func (f *fakeStore) Put(_ context.Context, bucket, key string, body []byte, contentType string) error {
	if f.failOn != "" && strings.HasSuffix(key, f.failOn) {
		return errors.New("AccessDenied")
	}
	f.puts = append(f.puts, stored{bucket, key, body, contentType})
	return nil
}

func (f *fakeStore) get(key string) *stored {
	for i := range f.puts {
		if f.puts[i].key == key {
			return &f.puts[i]
		}
	}
	return nil
}

type fakeImages struct {
	resp    []byte
	err     error
	modelID string
	body    []byte
}

func (f *fakeImages) InvokeImage(_ context.Context, modelID string, body []byte) ([]byte, error) {
	f.modelID, f.body = modelID, body
	return f.resp, f.err
}

var fixedNow = time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)

func newGen(t *testing.T, store ObjectStore, images ImageModel, opts Options) *Generator {
	if opts.Bucket == "" {
		opts.Bucket = "assets-bucket"
	}
	g := NewGenerator(store, images, opts, logger.NewTestLogger(t), nil)
	g.now = func() time.Time { return fixedNow }
	return g
}

func posterBrief() brief.Brief {
	return brief.Brief{
		Intent:       "Cosmic Fox",
		Style:        "vaporwave, neon, retro",
		ProductType:  "poster",
		Tags:         []string{"fox", "space", "neon"},
		DesignPrompt: "a fox made of stars",
		Notes:        "For adults.",
	}
}

func bookBrief() brief.Brief {
	b := posterBrief()
	b.ProductType = "book"
	b.Intent = "libro de dragones"
	return b
}

const base = "assets/u1/generated/poster_cosmic-fox"

// ==========================
// Image
// ==========================

func TestGenerate_ImagePlaceholderForTextOnlyModel(t *testing.T) {
	store := &fakeStore{}
	images := &fakeImages{}
	out := newGen(t, store, images, Options{Provider: config.ProviderTextOnly}).
		Generate(context.Background(), "prompt", posterBrief(), "u1")

	want := base + "_placeholder_20250607T080910Z.svg"
	assert.Equal(t, []string{"image"}, out.Kinds)
	assert.Equal(t, want, out.ImageKey)
	assert.Equal(t, []string{want}, out.MediaKeys)
	assert.Nil(t, out.Errors)
	assert.Nil(t, images.body, "text-only provider must not be invoked")

	put := store.get(want)
	require.NotNil(t, put)
	assert.Equal(t, "assets-bucket", put.bucket)
	assert.Equal(t, builders.ContentTypeSVG, put.contentType)
	assert.Contains(t, string(put.body), "Cosmic Fox")
	assert.Contains(t, string(put.body), "vaporwave, neon, retro")
}

func TestGenerate_TitanImage(t *testing.T) {
	png := []byte("\x89PNG fake")
	resp, _ := json.Marshal(map[string]interface{}{"images": []string{base64.StdEncoding.EncodeToString(png)}})

	store := &fakeStore{}
	images := &fakeImages{resp: resp}
	out := newGen(t, store, images, Options{
		Provider:     config.ProviderTitanImage,
		ImageModelID: "amazon.titan-image-generator-v2:0",
	}).Generate(context.Background(), "glowing fox", posterBrief(), "u1")

	assert.Equal(t, base+".png", out.ImageKey)
	assert.Equal(t, "amazon.titan-image-generator-v2:0", images.modelID)
	assert.Contains(t, string(images.body), `"taskType":"TEXT_IMAGE"`)
	assert.Contains(t, string(images.body), `"text":"glowing fox"`)

	put := store.get(base + ".png")
	require.NotNil(t, put)
	assert.Equal(t, png, put.body)
	assert.Equal(t, ContentTypePNG, put.contentType)
}

func TestGenerate_ImageFallsBackOnModelFailure(t *testing.T) {
	tests := []struct {
		name   string
		images *fakeImages
	}{
		{"invocation error", &fakeImages{err: errors.New("ThrottlingException")}},
		{"no artifacts", &fakeImages{resp: []byte(`{"artifacts": []}`)}},
		{"not json", &fakeImages{resp: []byte(`<html>`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			out := newGen(t, store, tt.images, Options{Provider: config.ProviderStableDiffusion}).
				Generate(context.Background(), "p", posterBrief(), "u1")

			assert.True(t, strings.HasSuffix(out.ImageKey, ".svg"))
			assert.Nil(t, out.Errors)
			assert.Len(t, store.puts, 1)
		})
	}
}

func TestGenerate_PlaceholderWriteFailure(t *testing.T) {
	store := &fakeStore{failOn: ".svg"}
	out := newGen(t, store, &fakeImages{}, Options{Provider: config.ProviderUnknown}).
		Generate(context.Background(), "p", posterBrief(), "u1")

	assert.Empty(t, out.ImageKey)
	assert.Empty(t, out.MediaKeys)
	assert.Contains(t, out.Errors["image"], "AccessDenied")
}

// ==========================
// Documents
// ==========================

func TestGenerate_DocumentPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    kinds.Policy
		wantKinds []string
		wantKeys  []string
	}{
		{
			name:      "triple",
			policy:    kinds.PolicyTriple,
			wantKinds: []string{"pdf", "docx", "txt"},
			wantKeys: []string{
				"assets/u1/generated/book_libro-de-dragones.pdf",
				"assets/u1/generated/book_libro-de-dragones.docx",
				"assets/u1/generated/book_libro-de-dragones.txt",
			},
		},
		{
			name:      "real book",
			policy:    kinds.PolicyRealBook,
			wantKinds: []string{"docx", "txt"},
			wantKeys: []string{
				"assets/u1/generated/book_libro-de-dragones.docx",
				"assets/u1/generated/book_libro-de-dragones.txt",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			out := newGen(t, store, nil, Options{Policy: tt.policy}).
				Generate(context.Background(), "dragons", bookBrief(), "u1")

			assert.Equal(t, tt.wantKinds, out.Kinds)
			assert.Equal(t, tt.wantKeys, out.MediaKeys)
			assert.Nil(t, out.Errors)
			assert.NotEmpty(t, out.DocxKey)
			assert.NotEmpty(t, out.TextKey)
			assert.Empty(t, out.ImageKey)
		})
	}
}

func TestGenerate_RealBookText(t *testing.T) {
	store := &fakeStore{}
	out := newGen(t, store, nil, Options{Policy: kinds.PolicyRealBook}).
		Generate(context.Background(), "dragones con el fuego", bookBrief(), "u1")

	put := store.get(out.TextKey)
	require.NotNil(t, put)
	assert.Contains(t, string(put.body), "Capítulo 1. Inicio: fox")
	assert.Equal(t, builders.ContentTypeTXT, put.contentType)
}

func TestGenerate_PartialFailure(t *testing.T) {
	store := &fakeStore{failOn: ".pdf"}
	out := newGen(t, store, nil, Options{}).
		Generate(context.Background(), "dragons", bookBrief(), "u1")

	assert.Empty(t, out.PDFKey)
	assert.Contains(t, out.Errors["pdf"], "AccessDenied")
	assert.Len(t, out.Errors, 1)
	assert.Len(t, out.MediaKeys, 2)
	assert.NotEmpty(t, out.DocxKey)
	assert.NotEmpty(t, out.TextKey)
}

// ==========================
// Video / 3D
// ==========================

func TestGenerate_Video(t *testing.T) {
	b := posterBrief()
	b.ProductType = "animation"

	store := &fakeStore{}
	out := newGen(t, store, nil, Options{}).Generate(context.Background(), "p", b, "u1")
	assert.Equal(t, []string{"video"}, out.Kinds)
	assert.Equal(t, ErrVideoDisabled.Error(), out.Errors["video"])
	assert.Empty(t, store.puts)

	store = &fakeStore{}
	out = newGen(t, store, nil, Options{VideoEnabled: true, GIF: builders.GIFOptions{Size: 16, Frames: 2}}).
		Generate(context.Background(), "p", b, "u1")
	assert.Equal(t, "assets/u1/generated/animation_cosmic-fox.gif", out.VideoKey)
	assert.Nil(t, out.Errors)
	require.Len(t, store.puts, 1)
	assert.Equal(t, builders.ContentTypeGIF, store.puts[0].contentType)
}

func TestGenerate_Model3D(t *testing.T) {
	b := posterBrief()
	b.ProductType = "3d_printable"

	store := &fakeStore{}
	out := newGen(t, store, nil, Options{}).Generate(context.Background(), "p", b, "u1")
	assert.Equal(t, []string{"3d"}, out.Kinds)
	assert.Equal(t, "assets/u1/generated/3d_printable_cosmic-fox.obj", out.Model3DKey)
	assert.Contains(t, string(store.puts[0].body), "# title: Cosmic Fox")
}

// ==========================
// Package / guards
// ==========================

func TestGenerate_Package(t *testing.T) {
	out := newGen(t, &fakeStore{}, nil, Options{}).Generate(context.Background(), "  ", posterBrief(), "u1")
	assert.Equal(t, "a fox made of stars", out.Package.DesignPrompt)
	assert.Equal(t, "Cosmic Fox", out.Package.SuggestedTitle)
	assert.Equal(t, "Generado automáticamente a partir de tu idea: For adults.", out.Package.SuggestedDescription)
	assert.Equal(t, posterBrief(), out.Package.Brief)

	b := posterBrief()
	b.Intent, b.DesignPrompt = "", ""
	out = newGen(t, &fakeStore{}, nil, Options{}).Generate(context.Background(), "", b, "u1")
	assert.Equal(t, DefaultDesignPrompt, out.Package.DesignPrompt)
	assert.Equal(t, "Producto creativo", out.Package.SuggestedTitle)
}

func TestGenerate_ClarifyBriefStops(t *testing.T) {
	store := &fakeStore{}
	out := newGen(t, store, nil, Options{}).Generate(context.Background(), "", brief.Clarify("EN", ""), "u1")

	assert.Empty(t, out.Kinds)
	assert.Empty(t, out.MediaKeys)
	assert.Equal(t, ErrClarifyingBrief.Error(), out.Errors["brief"])
	assert.Empty(t, store.puts)
}

func TestOutput_AddDeduplicatesMediaKeys(t *testing.T) {
	out := &Output{MediaKeys: []string{}}
	out.add(Result{Kind: kinds.DOCX, Field: "docx_key", Key: "a/b.docx"})
	out.add(Result{Kind: kinds.TXT, Field: "text_key", Key: "a/b.docx"})
	out.add(Result{Kind: kinds.PDF, Field: "pdf_key", Err: errors.New("boom")})

	assert.Equal(t, []string{"a/b.docx"}, out.MediaKeys)
	assert.Equal(t, "a/b.docx", out.TextKey)
	assert.Equal(t, map[string]string{"pdf": "boom"}, out.Errors)
}

func TestOutput_AllKeys(t *testing.T) {
	out := &Output{
		TextKey:   "b.txt",
		ImageKey:  "a.png",
		MediaKeys: []string{"b.txt", "c.obj", "a.png", "d.gif"},
	}
	assert.Equal(t, []string{"a.png", "b.txt", "c.obj", "d.gif"}, out.AllKeys())
	assert.Empty(t, (&Output{}).AllKeys())
}

// ==========================
// Keys
// ==========================

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Cosmic Fox", "cosmic-fox"},
		{"  ¡Dragón  de   origami!  ", "dragón-de-origami"},
		{"", "idea"},
		{"***", "idea"},
		{strings.Repeat("ab ", 30), strings.TrimRight(strings.Repeat("ab-", 16), "-")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestBaseKey(t *testing.T) {
	assert.Equal(t, "assets/user_unknown/generated/generic_idea", BaseKey("", "", ""))
	assert.Equal(t, "assets/a_b/generated/mug_hot-tea", BaseKey("a/b", "mug", "Hot tea"))
	assert.Equal(t, "x_placeholder_20250607T080910Z.svg", PlaceholderKey("x", fixedNow))
}

// ==========================
// Image payloads
// ==========================

func TestImageRequest(t *testing.T) {
	body, err := imageRequest(config.ProviderStableDiffusion, "fox")
	require.NoError(t, err)
	var sdxl map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &sdxl))
	assert.Equal(t, float64(30), sdxl["steps"])
	assert.Equal(t, float64(8), sdxl["cfg_scale"])
	assert.Equal(t, "fox", sdxl["text_prompts"].([]interface{})[0].(map[string]interface{})["text"])

	body, err = imageRequest(config.ProviderTitanImage, "fox")
	require.NoError(t, err)
	var titan map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &titan))
	cfg := titan["imageGenerationConfig"].(map[string]interface{})
	assert.Equal(t, float64(1024), cfg["width"])
	assert.Equal(t, "standard", cfg["quality"])
	assert.Equal(t, float64(0), cfg["seed"])

	_, err = imageRequest(config.ProviderTextOnly, "fox")
	assert.ErrorIs(t, err, ErrUnsupportedVendor)
}

func TestImageBytes(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("img"))
	tests := []struct {
		name     string
		provider config.ImageProvider
		body     string
		want     []byte
		wantErr  error
	}{
		{"titan images", config.ProviderTitanImage, `{"images":["` + enc + `"]}`, []byte("img"), nil},
		{"titan image_base64", config.ProviderTitanImage, `{"image_base64":"` + enc + `"}`, []byte("img"), nil},
		{"titan empty", config.ProviderTitanImage, `{"images":[]}`, nil, ErrNoImageOutput},
		{"sdxl artifact", config.ProviderStableDiffusion, `{"artifacts":[{"base64":"` + enc + `"}]}`, []byte("img"), nil},
		{"sdxl empty", config.ProviderStableDiffusion, `{}`, nil, ErrNoImageOutput},
		{"unknown vendor", config.ProviderUnknown, `{}`, nil, ErrUnsupportedVendor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := imageBytes(tt.provider, []byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
