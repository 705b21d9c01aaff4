package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/dream/brief"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type reply struct {
	raw map[string]interface{}
	err error
}

type fakeModel struct {
	replies []reply
	calls   int
	lastSys string
	lastHint string
}

func (f *fakeModel) InvokeJSON(_ context.Context, system, _ string, hint string) (map[string]interface{}, error) {
	f.lastSys, f.lastHint = system, hint
	r := f.replies[len(f.replies)-1]
	if f.calls < len(f.replies) {
		r = f.replies[f.calls]
	}
	f.calls++
	return r.raw, r.err
}

type countingBriefer struct {
	out   brief.Brief
	calls int
}

func (c *countingBriefer) Interpret(context.Context, string) brief.Brief {
	c.calls++
	return c.out
}

const (
	enText = "Make a cosmic fox poster with the stars behind it"
	esText = "quiero un póster de un zorro cósmico con estrellas"
)

func goodRaw() map[string]interface{} {
	return map[string]interface{}{
		"intent":        "cosmic fox poster",
		"style":         "vaporwave, neon, retro",
		"product_type":  "poster",
		"tags":          []interface{}{"Fox", "space", "neon"},
		"design_prompt": "a fox made of stars",
		"notes":         "For adults. Print ready",
	}
}

func newInterpreter(t *testing.T, m JSONModel, attempts int) *Interpreter {
	return New(m, Options{Attempts: attempts}, logger.NewTestLogger(t), nil)
}

// ==========================
// Interpreter
// ==========================

func TestNew_Options(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{name: "zero attempts take default", in: Options{}, want: Options{Attempts: DefaultAttempts}},
		{name: "negative delay takes default", in: Options{Attempts: 4, Delay: -1}, want: Options{Attempts: 4, Delay: DefaultDelay}},
		{name: "explicit values kept", in: Options{Attempts: 1, Delay: time.Second}, want: Options{Attempts: 1, Delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New(nil, tt.in, logger.NewNoOpLogger(), nil)
			assert.Equal(t, tt.want, in.opts)
		})
	}
}

func TestInterpreter_NormalizesModelOutput(t *testing.T) {
	m := &fakeModel{replies: []reply{{raw: goodRaw()}}}
	b := newInterpreter(t, m, 2).Interpret(context.Background(), enText)

	assert.Equal(t, "cosmic fox poster", b.Intent)
	assert.Equal(t, "poster", b.ProductType)
	assert.Equal(t, []string{"fox", "space", "neon"}, b.Tags)
	assert.True(t, strings.HasSuffix(b.DesignPrompt, "Add clear composition and print-safe palette."))
	assert.Equal(t, "For adults  Print ready.", b.Notes)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, SystemPrompt, m.lastSys)
	assert.Contains(t, m.lastHint, `"product_type"`)
}

func TestInterpreter_RetriesThenSucceeds(t *testing.T) {
	m := &fakeModel{replies: []reply{
		{err: errors.New("ThrottlingException")},
		{raw: goodRaw()},
	}}
	b := newInterpreter(t, m, 2).Interpret(context.Background(), esText)

	assert.False(t, b.IsClarify())
	assert.Equal(t, 2, m.calls)
	assert.True(t, strings.HasSuffix(b.DesignPrompt, "Añade composición clara y paleta segura para impresión."))
}

func TestInterpreter_FallsBackToClarify(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		replies   []reply
		wantNotes string
		wantCalls int
	}{
		{
			name:      "all attempts fail in english",
			text:      enText,
			replies:   []reply{{err: errors.New("timeout")}},
			wantNotes: brief.ClarifyNote("EN"),
			wantCalls: 3,
		},
		{
			name:      "garbage reply in spanish",
			text:      esText,
			replies:   []reply{{raw: nil}},
			wantNotes: brief.ClarifyNote("ES"),
			wantCalls: 3,
		},
		{
			name:      "model asks for clarification without notes",
			text:      "hola",
			replies:   []reply{{raw: map[string]interface{}{"intent": "clarify", "style": "x"}}},
			wantNotes: brief.ClarifyNote("ES"),
			wantCalls: 1,
		},
		{
			name:      "model clarification notes are kept",
			text:      "hello",
			replies:   []reply{{raw: map[string]interface{}{"intent": "clarify", "notes": "Tell me more."}}},
			wantNotes: "Tell me more.",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{replies: tt.replies}
			b := newInterpreter(t, m, 3).Interpret(context.Background(), tt.text)

			assert.True(t, b.IsClarify())
			assert.Equal(t, tt.wantNotes, b.Notes)
			assert.Empty(t, b.Style)
			assert.Empty(t, b.ProductType)
			assert.Empty(t, b.Tags)
			assert.Empty(t, b.DesignPrompt)
			assert.Equal(t, tt.wantCalls, m.calls)
		})
	}
}

func TestInterpreter_StopsWaitingWhenCancelled(t *testing.T) {
	m := &fakeModel{replies: []reply{{err: errors.New("unavailable")}}}
	in := New(m, Options{Attempts: 5, Delay: time.Hour}, logger.NewTestLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := in.Interpret(ctx, enText)

	assert.True(t, b.IsClarify())
	assert.Equal(t, 1, m.calls)
}

// ==========================
// Cache
// ==========================

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("fox"), CacheKey("  fox "))
	assert.NotEqual(t, CacheKey("fox"), CacheKey("wolf"))
	assert.True(t, strings.HasPrefix(CacheKey("fox"), "brief:"))
	assert.Len(t, CacheKey("fox"), len("brief:")+64)
}

func TestCachedInterpreter_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	next := &countingBriefer{out: brief.Normalize(goodRaw(), "EN")}
	c := NewCached(next, rdb, 10*time.Minute, logger.NewTestLogger(t))

	first := c.Interpret(context.Background(), enText)
	second := c.Interpret(context.Background(), enText)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(CacheKey(enText)))
	assert.Equal(t, 10*time.Minute, mr.TTL(CacheKey(enText)))
}

func TestCachedInterpreter_SkipsClarify(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	next := &countingBriefer{out: brief.Clarify("EN", "")}
	c := NewCached(next, rdb, time.Minute, logger.NewTestLogger(t))

	c.Interpret(context.Background(), "hi")
	c.Interpret(context.Background(), "hi")

	assert.Equal(t, 2, next.calls)
	assert.False(t, mr.Exists(CacheKey("hi")))
}

func TestCachedInterpreter_IgnoresCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(CacheKey(enText), "not json"))

	next := &countingBriefer{out: brief.Normalize(goodRaw(), "EN")}
	b := NewCached(next, rdb, time.Minute, logger.NewTestLogger(t)).Interpret(context.Background(), enText)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "poster", b.ProductType)
}

func TestCachedInterpreter_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()

	next := &countingBriefer{out: brief.Normalize(goodRaw(), "EN")}
	data, err := json.Marshal(next.out)
	require.NoError(t, err)

	key := CacheKey(enText)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, data, time.Minute).SetErr(errors.New("connection refused"))

	b := NewCached(next, rdb, time.Minute, logger.NewTestLogger(t)).Interpret(context.Background(), enText)

	assert.Equal(t, next.out, b)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedInterpreter_HitSkipsModel(t *testing.T) {
	rdb, mock := redismock.NewClientMock()

	cached := brief.Normalize(goodRaw(), "ES")
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet(CacheKey(esText)).SetVal(string(data))

	next := &countingBriefer{}
	b := NewCached(next, rdb, time.Minute, logger.NewTestLogger(t)).Interpret(context.Background(), esText)

	assert.Equal(t, cached, b)
	assert.Zero(t, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
