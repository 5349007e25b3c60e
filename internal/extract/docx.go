package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/aura-systems/aura/internal/domain"
)

// extractDocx concatenates all paragraph text into a single candidate, the
// way whole-document formats are chunked downstream.
func extractDocx(data []byte) ([]Candidate, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewExtractionError(domain.FileTypeDocx, err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		switch item.(type) {
		case *docx.Paragraph, *docx.Table:
			text := strings.TrimSpace(fmt.Sprint(item))
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}

	text := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []Candidate{{Content: text}}, nil
}
