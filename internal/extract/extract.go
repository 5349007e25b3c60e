// Package extract turns raw uploaded file bytes into chunk candidates for
// the ingestion pipeline. Dispatch is on the declared file type; an
// undeclared type fails before any bytes are inspected.
package extract

import (
	"github.com/aura-systems/aura/internal/domain"
)

// Candidate is one extracted span of text prior to chunking. PDF extraction
// yields one candidate per page; every other type yields a single candidate
// without a page number.
type Candidate struct {
	Content string
	Page    *int
}

// Extractor extracts text from supported document formats.
type Extractor struct {
	ocr OCRClient
}

// OCRClient performs image-to-text recognition.
type OCRClient interface {
	Recognize(data []byte) (string, error)
}

// NewExtractor creates an Extractor. A nil OCR client disables image support.
func NewExtractor(ocr OCRClient) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract dispatches on fileType and returns the candidates found in data.
// Returns domain.ErrUnsupportedFileType for types outside the supported set.
func (e *Extractor) Extract(fileType domain.FileType, data []byte) ([]Candidate, error) {
	switch fileType {
	case domain.FileTypePDF:
		return extractPDF(data)
	case domain.FileTypeDocx:
		return extractDocx(data)
	case domain.FileTypeText:
		return extractText(data)
	case domain.FileTypeImage:
		return e.extractImage(data)
	default:
		return nil, domain.ErrUnsupportedFileType
	}
}
