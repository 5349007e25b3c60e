package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aura-systems/aura/internal/domain"
)

// extractPDF reads per-page plain text. Pages without extractable text are
// skipped; page numbers are 1-based.
func extractPDF(data []byte) ([]Candidate, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewExtractionError(domain.FileTypePDF, err)
	}

	candidates := make([]Candidate, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, domain.NewExtractionError(domain.FileTypePDF, err)
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		pageNum := i
		candidates = append(candidates, Candidate{Content: text, Page: &pageNum})
	}

	return candidates, nil
}
