// Package document decodes non-HTML document bodies (PDF, DOCX) into plain
// text for the pipeline's ParseContent stage, alongside the existing
// json/xml/text branches.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ExtractPDF extracts plain text from a PDF document body, page by page,
// joined with blank lines so downstream markdown/BM25 passage-splitting
// still sees paragraph-like boundaries.
func ExtractPDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("document: pdf open failed: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("document: pdf produced no extractable text")
	}
	return out, nil
}

// ExtractDOCX extracts plain text from a DOCX document body.
func ExtractDOCX(raw []byte) (string, error) {
	reader := bytes.NewReader(raw)
	doc, err := docx.ReadDocxFromMemory(reader, int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("document: docx open failed: %w", err)
	}
	defer doc.Close()

	text := doc.Editable().GetContent()
	text = stripDocxMarkup(text)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document: docx produced no extractable text")
	}
	return text, nil
}

// stripDocxMarkup removes the XML tags nguyenthenguyen/docx's Editable().GetContent()
// leaves around the run text, keeping only the readable body.
func stripDocxMarkup(xmlLike string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range xmlLike {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
