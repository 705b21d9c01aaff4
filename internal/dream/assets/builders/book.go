package builders

import (
	"fmt"
	"strings"

	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/dream/lang"
)

const synopsisWords = 24

type bookWords struct {
	chapter  string
	outline  string
	synopsis string
	beats    []string
}

var bookVocabulary = map[lang.Code]bookWords{
	lang.EN: {
		chapter:  "Chapter",
		outline:  "Outline",
		synopsis: "Synopsis",
		beats:    []string{"Opening", "Discovery", "Journey", "Challenge", "Resolution"},
	},
	lang.ES: {
		chapter:  "Capítulo",
		outline:  "Índice",
		synopsis: "Sinopsis",
		beats:    []string{"Inicio", "Descubrimiento", "Viaje", "Desafío", "Desenlace"},
	},
}

// Chapter is one entry of a manuscript outline.
type Chapter struct {
	Number int
	Title  string
}

// Outline derives a five chapter outline from the brief's tags.
func Outline(b brief.Brief, code lang.Code) []Chapter {
	words, ok := bookVocabulary[code]
	if !ok {
		words = bookVocabulary[lang.ES]
	}
	out := make([]Chapter, len(words.beats))
	for i, beat := range words.beats {
		title := beat
		if len(b.Tags) > 0 {
			title = fmt.Sprintf("%s: %s", beat, b.Tags[i%len(b.Tags)])
		}
		out[i] = Chapter{Number: i + 1, Title: fmt.Sprintf("%s %d. %s", words.chapter, i+1, title)}
	}
	return out
}

func bookParagraphs(b brief.Brief, prompt string, code lang.Code) []paragraph {
	words, ok := bookVocabulary[code]
	if !ok {
		words = bookVocabulary[lang.ES]
	}
	title := b.Intent
	if title == "" {
		title = "DreamForge"
	}

	paras := []paragraph{
		{Text: title, Heading: true},
		{Label: words.synopsis + ": ", Text: firstWords(prompt, synopsisWords)},
		{Text: b.Notes},
		{Text: words.outline, Heading: true},
	}
	chapters := Outline(b, code)
	for _, ch := range chapters {
		paras = append(paras, paragraph{Text: ch.Title})
	}
	for _, ch := range chapters {
		paras = append(paras, paragraph{Text: ch.Title, Heading: true}, paragraph{Text: ""})
	}
	return paras
}

// BookDocument renders a manuscript skeleton: title page, synopsis, outline and
// one empty section per chapter. Falls back to RTF like BriefDocument.
func BookDocument(b brief.Brief, prompt string, code lang.Code) Document {
	paras := bookParagraphs(b, prompt, code)
	if data, err := renderDOCX(paras); err == nil {
		return Document{Data: data, Ext: ExtDOCX, ContentType: ContentTypeDOCX}
	}
	return Document{Data: renderRTF(paras), Ext: ExtRTF, ContentType: ContentTypeRTF}
}

// BookText is the plain text variant of BookDocument.
func BookText(b brief.Brief, prompt string, code lang.Code) []byte {
	var sb strings.Builder
	for _, p := range bookParagraphs(b, prompt, code) {
		switch {
		case p.Heading:
			sb.WriteString("\n" + strings.ToUpper(p.Text) + "\n")
		case p.Label != "":
			sb.WriteString(p.Label + p.Text + "\n")
		default:
			sb.WriteString(p.Text + "\n")
		}
	}
	return []byte(strings.TrimLeft(sb.String(), "\n"))
}

func firstWords(s string, n int) string {
	w := strings.Fields(s)
	if len(w) > n {
		return strings.Join(w[:n], " ") + " ..."
	}
	return strings.Join(w, " ")
}
