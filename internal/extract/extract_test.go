package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aura-systems/aura/internal/domain"
)

// MockOCRClient is a mock implementation of OCRClient
type MockOCRClient struct {
	mock.Mock
}

func (m *MockOCRClient) Recognize(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

func TestExtract_UnsupportedType(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(domain.FileType("exe"), []byte("MZ"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestExtractText_PlainUTF8(t *testing.T) {
	e := NewExtractor(nil)

	candidates, err := e.Extract(domain.FileTypeText, []byte("Hello, world.\nSecond line."))

	assert.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "Hello, world.\nSecond line.", candidates[0].Content)
	assert.Nil(t, candidates[0].Page)
}

func TestExtractText_InvalidUTF8(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(domain.FileTypeText, []byte{0xff, 0xfe, 0x00})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
}

func TestExtractText_WhitespaceOnlyYieldsNothing(t *testing.T) {
	e := NewExtractor(nil)

	candidates, err := e.Extract(domain.FileTypeText, []byte("  \n\t  "))

	assert.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractImage_UsesOCR(t *testing.T) {
	ocr := new(MockOCRClient)
	ocr.On("Recognize", []byte{0x89, 0x50}).Return("scanned invoice text", nil)

	e := NewExtractor(ocr)
	candidates, err := e.Extract(domain.FileTypeImage, []byte{0x89, 0x50})

	assert.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, "scanned invoice text", candidates[0].Content)
	ocr.AssertExpectations(t)
}

func TestExtractImage_OCRFailure(t *testing.T) {
	ocr := new(MockOCRClient)
	ocr.On("Recognize", mock.Anything).Return("", errors.New("tesseract not found"))

	e := NewExtractor(ocr)
	_, err := e.Extract(domain.FileTypeImage, []byte{0x89, 0x50})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
}

func TestExtractImage_WithoutOCRConfigured(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(domain.FileTypeImage, []byte{0x89, 0x50})
	assert.Error(t, err)
}

func TestExtractImage_EmptyRecognitionYieldsNothing(t *testing.T) {
	ocr := new(MockOCRClient)
	ocr.On("Recognize", mock.Anything).Return("   ", nil)

	e := NewExtractor(ocr)
	candidates, err := e.Extract(domain.FileTypeImage, []byte{0x89, 0x50})

	assert.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractPDF_MalformedBytes(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(domain.FileTypePDF, []byte("not a pdf"))

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
}

func TestExtractDocx_MalformedBytes(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(domain.FileTypeDocx, []byte("not a zip archive"))

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
}
