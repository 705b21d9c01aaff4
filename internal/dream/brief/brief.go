// Package brief holds the canonical creative brief and the rules that repair
// untrusted model output into one.
package brief

import (
	"dreamforge-workers/internal/dream/lang"
)

// IntentClarify marks a brief that needs more information from the user.
const IntentClarify = "clarify"

// Brief is the normalized description of a creative request.
type Brief struct {
	Intent       string   `json:"intent"`
	Style        string   `json:"style"`
	ProductType  string   `json:"product_type"`
	Tags         []string `json:"tags"`
	DesignPrompt string   `json:"design_prompt"`
	Notes        string   `json:"notes"`
}

// IsClarify reports whether b is the terminal "needs more information" sentinel.
func (b Brief) IsClarify() bool {
	return b.Intent == IntentClarify
}

// Map renders the brief as a plain map, the shape stored in job variables and records.
func (b Brief) Map() map[string]interface{} {
	tags := make([]interface{}, len(b.Tags))
	for i, t := range b.Tags {
		tags[i] = t
	}
	return map[string]interface{}{
		"intent":        b.Intent,
		"style":         b.Style,
		"product_type":  b.ProductType,
		"tags":          tags,
		"design_prompt": b.DesignPrompt,
		"notes":         b.Notes,
	}
}

var clarifyNotes = map[lang.Code]string{
	lang.EN: "What would you like to create? e.g., 'a vaporwave poster of a cosmic fox', 'a retro children’s book cover with origami dragons'.",
	lang.ES: "¿Qué te gustaría crear? Ej.: 'un póster vaporwave de un zorro cósmico', 'una portada de libro infantil con dragones de origami'.",
}

// ClarifyNote returns the language-appropriate prompt asking for more detail.
func ClarifyNote(code lang.Code) string {
	if n, ok := clarifyNotes[code]; ok {
		return n
	}
	return clarifyNotes[lang.ES]
}

// Clarify builds the clarification sentinel. An empty notes falls back to ClarifyNote.
func Clarify(code lang.Code, notes string) Brief {
	if notes == "" {
		notes = ClarifyNote(code)
	}
	return Brief{
		Intent: IntentClarify,
		Tags:   []string{},
		Notes:  notes,
	}
}

// FromMap decodes a brief previously rendered with Map, without normalizing it.
func FromMap(raw map[string]interface{}) Brief {
	return Brief{
		Intent:       asString(raw["intent"]),
		Style:        asString(raw["style"]),
		ProductType:  asString(raw["product_type"]),
		Tags:         asStrings(raw["tags"]),
		DesignPrompt: asString(raw["design_prompt"]),
		Notes:        asString(raw["notes"]),
	}
}
