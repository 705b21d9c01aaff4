package builders

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const (
	ContentTypePDF = "application/pdf"

	maxPDFLine = 60
)

var pdfTextEscaper = strings.NewReplacer("(", "[", ")", "]", "\\", "/")

// MinimalPDF writes a single letter-size page showing one line of text in
// Helvetica. Text is clipped to 60 characters; characters outside Latin-1 become '?'.
func MinimalPDF(text string) []byte {
	line := latin1(clipRunes(pdfTextEscaper.Replace(text), maxPDFLine))
	content := fmt.Sprintf("BT\n/F1 24 Tf\n72 720 Td\n(%s) Tj\nET\n", line)

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Count 1 /Kids [3 0 R] >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]\n/Resources << /Font << /F1 5 0 R >> >>\n/Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n% DreamForge\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Root 1 0 R /Size %d >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// BriefPDF stamps the title, generation time and notes onto a MinimalPDF.
func BriefPDF(title, notes string, now time.Time) []byte {
	return MinimalPDF(fmt.Sprintf("DreamForge - %s - %s - %s",
		title, now.UTC().Format("2006-01-02T15:04:05Z"), notes))
}

func latin1(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return string(out)
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
