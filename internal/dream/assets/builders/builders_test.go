package builders

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image/gif"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/lang"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBrief() brief.Brief {
	return brief.Brief{
		Intent:       "Fox & friends {story}",
		Style:        "watercolor, soft, warm",
		ProductType:  "book",
		Tags:         []string{"fox", "forest"},
		DesignPrompt: "a fox reading under a tree",
		Notes:        "For kids.",
	}
}

func TestPlaceholderSVG(t *testing.T) {
	svg := string(PlaceholderSVG("Cats & Dogs", "neon <retro>"))
	assert.Contains(t, svg, "Cats &amp; Dogs")
	assert.Contains(t, svg, "neon &lt;retro&gt;")
	assert.Contains(t, svg, `stop-color="#00e5ff"`)
	assert.Contains(t, svg, `stop-color="#7c4dff"`)
	assert.Contains(t, svg, `offset="100%"`)

	assert.Contains(t, string(PlaceholderSVG("  ", "")), ">DreamForge<")
}

func TestPlaceholderOBJ(t *testing.T) {
	obj := string(PlaceholderOBJ("line one\nline two"))
	assert.Contains(t, obj, "# title: line one line two\n")
	assert.Contains(t, obj, "o plane\n")
	assert.Equal(t, 4, strings.Count(obj, "\nv "))
	assert.Equal(t, 2, strings.Count(obj, "\nf "))

	assert.Contains(t, string(PlaceholderOBJ("")), "# title: dreamforge\n")
}

func TestMinimalPDF(t *testing.T) {
	pdf := MinimalPDF("Hello (world) é " + strings.Repeat("x", 100))
	s := string(pdf)

	assert.True(t, strings.HasPrefix(s, "%PDF-1.4\n"))
	assert.True(t, strings.HasSuffix(s, "%%EOF\n"))
	assert.Contains(t, s, "(Hello [world] ? xxx")
	assert.NotContains(t, s, strings.Repeat("x", 50))

	// every xref entry must point at its object header
	xrefAt := strings.Index(s, "\nxref\n") + 1
	require.Greater(t, xrefAt, 1)
	entries := regexp.MustCompile(`(\d{10}) 00000 n `).FindAllStringSubmatch(s[xrefAt:], -1)
	require.Len(t, entries, 5)
	for i, e := range entries {
		off, err := strconv.Atoi(e[1])
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s[off:], fmt.Sprintf("%d 0 obj\n", i+1)), "object %d", i+1)
	}

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindStringSubmatch(s)
	require.Len(t, m, 2)
	assert.Equal(t, strconv.Itoa(xrefAt), m[1])
}

func TestBriefPDF(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := string(BriefPDF("Fox", "notes", now))
	assert.Contains(t, s, "(DreamForge - Fox - 2025-01-02T03:04:05Z - notes)")
}

func TestBriefDocument_DOCX(t *testing.T) {
	doc := BriefDocument(sampleBrief(), "prompt <with> markup")
	require.Equal(t, ExtDOCX, doc.Ext)
	assert.Equal(t, ContentTypeDOCX, doc.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	require.NoError(t, err)

	names := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(data)
	}
	require.Contains(t, names, "[Content_Types].xml")
	require.Contains(t, names, "_rels/.rels")
	body := names["word/document.xml"]
	assert.Contains(t, body, "Fox &amp; friends {story}")
	assert.Contains(t, body, "prompt &lt;with&gt; markup")
	assert.Contains(t, body, "fox, forest")
}

func TestRenderRTF(t *testing.T) {
	rtf := string(renderRTF(briefParagraphs(sampleBrief(), `back\slash`)))
	assert.True(t, strings.HasPrefix(rtf, `{\rtf1\ansi `))
	assert.True(t, strings.HasSuffix(rtf, "}"))
	assert.Contains(t, rtf, `\b Intent: \b0 Fox & friends \{story\}\par `)
	assert.Contains(t, rtf, `back\\slash\par `)
}

func TestBriefText(t *testing.T) {
	lines := strings.Split(string(BriefText(sampleBrief(), "the prompt")), "\n")
	assert.Equal(t, "DreamForge - Production Brief", lines[0])
	assert.Equal(t, "Tags: fox, forest", lines[4])
	assert.Equal(t, "the prompt", lines[7])
	assert.Equal(t, "For kids.", lines[len(lines)-1])
}

func TestOutline(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		code  lang.Code
		first string
		third string
	}{
		{"english cycles tags", []string{"fox", "forest"}, lang.EN, "Chapter 1. Opening: fox", "Chapter 3. Journey: fox"},
		{"spanish", []string{"zorro"}, lang.ES, "Capítulo 1. Inicio: zorro", "Capítulo 3. Viaje: zorro"},
		{"no tags", nil, lang.EN, "Chapter 1. Opening", "Chapter 3. Journey"},
		{"unknown language uses spanish", nil, lang.Code("FR"), "Capítulo 1. Inicio", "Capítulo 3. Viaje"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBrief()
			b.Tags = tt.tags
			chapters := Outline(b, tt.code)
			require.Len(t, chapters, 5)
			assert.Equal(t, tt.first, chapters[0].Title)
			assert.Equal(t, tt.third, chapters[2].Title)
			assert.Equal(t, 5, chapters[4].Number)
		})
	}
}

func TestBookDocumentAndText(t *testing.T) {
	b := sampleBrief()
	doc := BookDocument(b, strings.Repeat("word ", 40), lang.ES)
	assert.Equal(t, ExtDOCX, doc.Ext)
	assert.NotEmpty(t, doc.Data)

	txt := string(BookText(b, strings.Repeat("word ", 40), lang.ES))
	assert.True(t, strings.HasPrefix(txt, "FOX & FRIENDS {STORY}\n"))
	assert.Contains(t, txt, "Sinopsis: "+strings.TrimSpace(strings.Repeat("word ", synopsisWords))+" ...\n")
	assert.Contains(t, txt, "\nÍNDICE\n")
	assert.Contains(t, txt, "Capítulo 5. Desenlace: fox\n")
	assert.Contains(t, txt, "\nCAPÍTULO 5. DESENLACE: FOX\n")
}

func TestPlaceholderGIF(t *testing.T) {
	data, err := PlaceholderGIF(GIFOptions{Size: 32, Frames: 3})
	require.NoError(t, err)

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	assert.Equal(t, []int{8, 8, 8}, g.Delay)
	assert.Equal(t, 32, g.Image[0].Bounds().Dx())
	assert.Equal(t, 0, g.LoopCount)
}

func TestGIFOptionsDefaults(t *testing.T) {
	o := GIFOptions{}.withDefaults()
	assert.Equal(t, GIFOptions{Size: 1024, Frames: 12, Delay: 8}, o)
}
