// Package kinds routes a brief to the asset kinds that must be produced for it.
package kinds

import (
	"fmt"
	"strings"
)

// Kind is one deliverable asset category.
type Kind string

const (
	Image Kind = "image"
	PDF   Kind = "pdf"
	DOCX  Kind = "docx"
	RTF   Kind = "rtf"
	TXT   Kind = "txt"
	Video Kind = "video"
	Model Kind = "3d"
)

// Policy selects the document kind-set produced for book-like briefs.
type Policy string

const (
	// PolicyTriple produces a single-page PDF alongside a DOCX and a TXT brief.
	PolicyTriple Policy = "triple"
	// PolicyRealBook produces a DOCX/TXT manuscript with a chapter outline and no PDF.
	PolicyRealBook Policy = "real_book"
)

// ParsePolicy accepts the configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyTriple, PolicyRealBook:
		return p, nil
	case "":
		return PolicyTriple, nil
	default:
		return "", fmt.Errorf("unknown document policy %q", s)
	}
}

// Documents returns the document kind-set for the policy.
func (p Policy) Documents() []Kind {
	if p == PolicyRealBook {
		return []Kind{DOCX, TXT}
	}
	return []Kind{PDF, DOCX, TXT}
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, i := range items {
		m[i] = struct{}{}
	}
	return m
}

var (
	imageOnly = set("poster", "tshirt", "sticker", "children_book_cover", "book_cover",
		"cover", "ebook_cover", "mockup", "image")
	docOnly = set("book", "ebook", "educational_content", "story", "children_book",
		"novel", "document", "libro")
	videoOnly = set("video", "clip", "animation")
	modelOnly = set("3d_model", "3d_printable", "model3d", "3d")
)

// Decide returns the ordered kinds to generate for a product type and intent.
// The first matching rule wins; anything unmatched falls back to an image.
func Decide(productType, intent string, policy Policy) []Kind {
	pt := strings.ToLower(strings.TrimSpace(productType))
	in := strings.ToLower(intent)

	if _, ok := imageOnly[pt]; ok || strings.Contains(in, "image") {
		return []Kind{Image}
	}
	if _, ok := docOnly[pt]; ok ||
		(pt == "" && (strings.Contains(in, "book") || strings.Contains(in, "libro"))) {
		return policy.Documents()
	}
	if _, ok := videoOnly[pt]; ok || strings.Contains(pt, "video") ||
		strings.Contains(in, "video") || strings.Contains(in, "gif") {
		return []Kind{Video}
	}
	if _, ok := modelOnly[pt]; ok || strings.Contains(pt, "3d") || strings.Contains(in, "3d") {
		return []Kind{Model}
	}
	return []Kind{Image}
}

// Strings renders kinds for job variables and JSON output.
func Strings(ks []Kind) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}
