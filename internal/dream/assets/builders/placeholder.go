// Package builders renders the byte payloads stored for each asset kind.
// Every format here is intentionally minimal: enough for a preview or a
// downstream editor to open, nothing more.
package builders

import (
	"fmt"
	"strings"
)

const (
	ContentTypeSVG = "image/svg+xml"
	ContentTypeOBJ = "text/plain"

	defaultSVGTitle = "DreamForge"
	defaultOBJTitle = "dreamforge"
)

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// PlaceholderSVG draws a 1024x1024 gradient card with a title and subtitle.
func PlaceholderSVG(title, subtitle string) []byte {
	if strings.TrimSpace(title) == "" {
		title = defaultSVGTitle
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="1024">
  <defs>
    <linearGradient id="g" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%%" stop-color="#00e5ff"/>
      <stop offset="100%%" stop-color="#7c4dff"/>
    </linearGradient>
  </defs>
  <rect width="100%%" height="100%%" fill="url(#g)"/>
  <g fill="white" font-family="Readex Pro, Inter, system-ui" text-anchor="middle">
    <text x="512" y="480" font-size="64" font-weight="700">%s</text>
    <text x="512" y="540" font-size="28" opacity="0.85">%s</text>
  </g>
</svg>`, svgEscaper.Replace(title), svgEscaper.Replace(subtitle)))
}

// PlaceholderOBJ is a unit plane mesh tagged with the title.
func PlaceholderOBJ(title string) []byte {
	title = strings.NewReplacer("\r", " ", "\n", " ").Replace(title)
	if strings.TrimSpace(title) == "" {
		title = defaultOBJTitle
	}
	return []byte(`# DreamForge placeholder
# title: ` + title + `
o plane
v -0.5 0.0 -0.5
v  0.5 0.0 -0.5
v  0.5 0.0  0.5
v -0.5 0.0  0.5
vt 0.0 0.0
vt 1.0 0.0
vt 1.0 1.0
vt 0.0 1.0
vn 0.0 1.0 0.0
usemtl default
s off
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`)
}
