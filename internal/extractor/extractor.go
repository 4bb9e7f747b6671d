// Package extractor converts uploaded documents into flat UTF-8 text.
// Extraction is a pure transform: the declared format tag selects a decoder,
// and failures are terminal for the request (no retries).
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Format tags accepted by the extractor.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// ParseFormat maps a format tag (or a file extension) to a Format.
func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(tag, ".")) {
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
	}
}

// Document is an uploaded payload awaiting extraction. The raw payload is
// discarded after extraction; only derived chunks persist.
type Document struct {
	ID         string
	Format     Format
	Payload    []byte
	UploadedAt time.Time
}

// Extractor decodes documents into plain text.
type Extractor struct {
	markdown goldmark.Markdown
}

// New creates an Extractor with a goldmark parser for markdown payloads.
func New() *Extractor {
	return &Extractor{
		markdown: goldmark.New(),
	}
}

// Extract decodes the document payload according to its format tag and
// returns normalized UTF-8 text. A payload that cannot be decoded returns
// ErrCorruptDocument; an unknown format tag returns ErrUnsupportedFormat.
func (e *Extractor) Extract(doc Document) (string, error) {
	var (
		raw string
		err error
	)

	switch doc.Format {
	case FormatText:
		raw, err = extractPlainText(doc.Payload)
	case FormatMarkdown:
		raw, err = e.extractMarkdown(doc.Payload)
	case FormatPDF:
		raw, err = extractPDF(doc.Payload)
	case FormatDOCX:
		raw, err = extractDOCX(doc.Payload)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Format)
	}
	if err != nil {
		return "", err
	}

	normalized := normalize(raw)
	if normalized == "" {
		return "", fmt.Errorf("%w: no text content", ErrCorruptDocument)
	}
	return normalized, nil
}

// extractPlainText validates the payload as UTF-8 and returns it unchanged.
func extractPlainText(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrCorruptDocument)
	}
	return string(payload), nil
}

// extractMarkdown parses the payload with goldmark and emits the text of
// all leaf nodes, preserving paragraph breaks. Formatting (emphasis, links,
// heading markers) is discarded; code block contents are kept.
func (e *Extractor) extractMarkdown(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrCorruptDocument)
	}

	reader := text.NewReader(payload)
	root := e.markdown.Parser().Parse(reader)

	var buf strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch v := n.(type) {
			case *ast.Text:
				buf.Write(v.Segment.Value(payload))
				if v.SoftLineBreak() || v.HardLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(payload))
				}
			}
			return ast.WalkContinue, nil
		}

		// Block boundaries become paragraph breaks in the flat text.
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindListItem,
			ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindBlockquote:
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	return buf.String(), nil
}

// extractPDF pulls plain text from a PDF payload.
func extractPDF(payload []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return buf.String(), nil
}

// extractDOCX reads paragraph text from word/document.xml inside the DOCX
// zip container. Runs inside <w:t> elements are concatenated; each closed
// <w:p> becomes a paragraph break.
func extractDOCX(payload []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("%w: missing word/document.xml", ErrCorruptDocument)
	}
	defer docXML.Close()

	dec := xml.NewDecoder(docXML)
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}

	return buf.String(), nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// normalize collapses extraction artifacts: CRLF line endings, runs of
// blank lines, and surrounding whitespace.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
