package brief

import (
	"fmt"
	"strings"

	"dreamforge-workers/internal/dream/lang"
)

const (
	maxListTokens = 8
	minListTokens = 3

	minPromptWords = 40
	maxPromptWords = 120

	maxNoteFragments = 3

	defaultStyle = "minimal, clean, high-contrast"
	stylePad     = "minimal"
	tagPad       = "creative"
)

var promptFiller = map[lang.Code]string{
	lang.EN: "Add clear composition and print-safe palette.",
	lang.ES: "Añade composición clara y paleta segura para impresión.",
}

var defaultNotes = map[lang.Code]string{
	lang.EN: "Use reference if available; do not copy logos or brands.",
	lang.ES: "Usar referencia si está disponible; no copiar logotipos ni marcas.",
}

// Normalize repairs an untrusted brief object into a Brief. It never fails:
// wrong types are coerced and missing values replaced by defaults.
func Normalize(raw map[string]interface{}, code lang.Code) Brief {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if _, ok := promptFiller[code]; !ok {
		code = lang.ES
	}

	intent := strings.TrimSpace(asString(raw["intent"]))
	if intent == "" {
		intent = ProductOther
	}

	tags := normalizeTags(asStrings(raw["tags"]))

	return Brief{
		Intent:       intent,
		Style:        normalizeStyle(asString(raw["style"])),
		ProductType:  Canonicalize(asString(raw["product_type"]), intent),
		Tags:         tags,
		DesignPrompt: normalizePrompt(asString(raw["design_prompt"]), tags, code),
		Notes:        normalizeNotes(asString(raw["notes"]), code),
	}
}

func normalizeStyle(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return defaultStyle
	}
	var parts []string
	for _, p := range strings.Split(strings.ReplaceAll(style, ";", ","), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
		if len(parts) == maxListTokens {
			break
		}
	}
	for len(parts) < minListTokens {
		parts = append(parts, stylePad)
	}
	return strings.Join(parts, ", ")
}

func normalizeTags(raw []string) []string {
	tags := make([]string, 0, maxListTokens)
	for _, t := range raw {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
		if len(tags) == maxListTokens {
			break
		}
	}
	for len(tags) < minListTokens {
		tags = append(tags, tagPad)
	}
	return tags
}

// normalizePrompt tops up a short prompt with the filler sentence once; the
// word count is not re-checked afterwards.
func normalizePrompt(prompt string, tags []string, code lang.Code) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = strings.Join(tags, " ")
	}
	words := strings.Fields(prompt)
	if len(words) > 0 {
		if len(words) > maxPromptWords {
			words = words[:maxPromptWords]
		}
		prompt = strings.Join(words, " ")
	}
	if len(words) < minPromptWords {
		prompt = strings.TrimSpace(prompt + " " + promptFiller[code])
	}
	return prompt
}

func normalizeNotes(notes string, code lang.Code) string {
	if out := clipNotes(notes); out != "" {
		return out
	}
	return clipNotes(defaultNotes[code])
}

func clipNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	frags := strings.Split(notes, ".")
	if len(frags) > maxNoteFragments {
		frags = frags[:maxNoteFragments]
	}
	out := strings.TrimSpace(strings.Join(frags, " "))
	if out == "" {
		return ""
	}
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		return strings.Join(asStrings(t), ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, asString(item))
		}
		return out
	case string:
		return strings.Split(t, ",")
	default:
		return []string{fmt.Sprint(t)}
	}
}
