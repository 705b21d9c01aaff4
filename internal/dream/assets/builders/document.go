package builders

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"dreamforge-workers/internal/dream/brief"
)

const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeRTF  = "application/rtf"
	ContentTypeTXT  = "text/plain; charset=utf-8"

	ExtDOCX = ".docx"
	ExtRTF  = ".rtf"
	ExtTXT  = ".txt"
)

// Document is a rendered file plus the extension and content type to store it under.
type Document struct {
	Data        []byte
	Ext         string
	ContentType string
}

// paragraph is one line of a document. A Label renders bold before Text;
// Heading renders the whole line as a heading.
type paragraph struct {
	Label   string
	Text    string
	Heading bool
}

func briefParagraphs(b brief.Brief, prompt string) []paragraph {
	return []paragraph{
		{Text: "DreamForge - Brief", Heading: true},
		{Label: "Intent: ", Text: b.Intent},
		{Label: "Product: ", Text: b.ProductType},
		{Label: "Style: ", Text: b.Style},
		{Label: "Tags: ", Text: strings.Join(b.Tags, ", ")},
		{Text: "Design prompt", Heading: true},
		{Text: prompt},
		{Text: "Notes", Heading: true},
		{Text: b.Notes},
	}
}

// BriefDocument renders the brief as DOCX, falling back to RTF when the
// DOCX package cannot be written.
func BriefDocument(b brief.Brief, prompt string) Document {
	paras := briefParagraphs(b, prompt)
	if data, err := renderDOCX(paras); err == nil {
		return Document{Data: data, Ext: ExtDOCX, ContentType: ContentTypeDOCX}
	}
	return Document{Data: renderRTF(paras), Ext: ExtRTF, ContentType: ContentTypeRTF}
}

// BriefText renders the brief as plain text.
func BriefText(b brief.Brief, prompt string) []byte {
	lines := []string{
		"DreamForge - Production Brief",
		"Intent: " + b.Intent,
		"Product: " + b.ProductType,
		"Style: " + b.Style,
		"Tags: " + strings.Join(b.Tags, ", "),
		"",
		"Design Prompt:",
		prompt,
		"",
		"Notes:",
		b.Notes,
	}
	return []byte(strings.Join(lines, "\n"))
}

var docxParts = []struct{ name, body string }{
	{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`},
	{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
}

// renderDOCX packages paragraphs into a minimal WordprocessingML document.
func renderDOCX(paras []paragraph) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, part := range docxParts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
	}

	w, err := zw.Create("word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("docx body: %w", err)
	}
	if _, err := w.Write(documentXML(paras)); err != nil {
		return nil, fmt.Errorf("docx body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx close: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(paras []paragraph) []byte {
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paras {
		body.WriteString("<w:p>")
		switch {
		case p.Heading:
			writeRun(&body, p.Text, `<w:b/><w:sz w:val="32"/>`)
		case p.Label != "":
			writeRun(&body, p.Label, `<w:b/>`)
			writeRun(&body, p.Text, "")
		default:
			writeRun(&body, p.Text, "")
		}
		body.WriteString("</w:p>")
	}
	body.WriteString(`</w:body></w:document>`)
	return body.Bytes()
}

func writeRun(buf *bytes.Buffer, text, props string) {
	buf.WriteString("<w:r>")
	if props != "" {
		buf.WriteString("<w:rPr>" + props + "</w:rPr>")
	}
	buf.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(buf, []byte(text))
	buf.WriteString("</w:t></w:r>")
}

var rtfEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)

// renderRTF renders paragraphs as a Rich Text document.
func renderRTF(paras []paragraph) []byte {
	var sb strings.Builder
	sb.WriteString(`{\rtf1\ansi `)
	for _, p := range paras {
		switch {
		case p.Heading:
			sb.WriteString(`\b ` + rtfEscaper.Replace(p.Text) + `\b0\par `)
		case p.Label != "":
			sb.WriteString(`\b ` + rtfEscaper.Replace(p.Label) + `\b0 ` + rtfEscaper.Replace(p.Text) + `\par `)
		default:
			sb.WriteString(rtfEscaper.Replace(p.Text) + `\par `)
		}
	}
	sb.WriteString("}")
	return []byte(sb.String())
}
