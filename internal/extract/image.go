package extract

import (
	"errors"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/aura-systems/aura/internal/domain"
)

func (e *Extractor) extractImage(data []byte) ([]Candidate, error) {
	if e.ocr == nil {
		return nil, domain.NewExtractionError(domain.FileTypeImage, errors.New("OCR is not configured"))
	}

	text, err := e.ocr.Recognize(data)
	if err != nil {
		return nil, domain.NewExtractionError(domain.FileTypeImage, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []Candidate{{Content: text}}, nil
}

// TesseractOCR runs OCR through a local tesseract installation.
type TesseractOCR struct{}

// Recognize extracts text from image bytes. A fresh client per call keeps
// this safe for concurrent ingestions.
func (TesseractOCR) Recognize(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", err
	}

	return client.Text()
}
