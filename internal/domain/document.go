package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the processing state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// FileType is the declared type of an uploaded document
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDocx  FileType = "docx"
	FileTypeText  FileType = "txt"
	FileTypeImage FileType = "image"
)

// FileTypeFromExtension maps a filename extension (without the dot) to a
// supported FileType. The second return is false for unsupported extensions.
func FileTypeFromExtension(ext string) (FileType, bool) {
	switch ext {
	case "pdf":
		return FileTypePDF, true
	case "docx", "doc":
		return FileTypeDocx, true
	case "txt", "md":
		return FileTypeText, true
	case "png", "jpg", "jpeg":
		return FileTypeImage, true
	default:
		return "", false
	}
}

// Document represents an uploaded file owned by a brain
type Document struct {
	ID               int64
	BrainID          int64
	Filename         string
	OriginalFilename string
	FileType         FileType
	StorageKey       string
	FileSize         int64
	Status           DocumentStatus
	VectorIDs        []string
	Metadata         map[string]any
	ProcessingError  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDocument creates a new Document instance in pending state
func NewDocument(
	brainID int64,
	filename, originalFilename string,
	fileType FileType,
	storageKey string,
	fileSize int64,
	metadata map[string]any,
	createdAt time.Time,
) *Document {
	return &Document{
		BrainID:          brainID,
		Filename:         filename,
		OriginalFilename: originalFilename,
		FileType:         fileType,
		StorageKey:       storageKey,
		FileSize:         fileSize,
		Status:           DocumentStatusPending,
		Metadata:         metadata,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.BrainID == 0 {
		return fmt.Errorf("document BrainID is required")
	}

	if d.OriginalFilename == "" {
		return fmt.Errorf("document OriginalFilename is required")
	}

	if d.StorageKey == "" {
		return fmt.Errorf("document StorageKey is required")
	}

	if !IsSupportedFileType(d.FileType) {
		return fmt.Errorf("document FileType is invalid: %s", d.FileType)
	}

	return nil
}

// IsSupportedFileType reports whether the declared type is one the ingestion
// pipeline can extract.
func IsSupportedFileType(t FileType) bool {
	switch t {
	case FileTypePDF, FileTypeDocx, FileTypeText, FileTypeImage:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a document status change is legal. Processed
// and failed are terminal; only an explicit reprocess resets to pending, and
// repositories perform that reset outside this check.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case DocumentStatusPending:
		return next == DocumentStatusProcessed || next == DocumentStatusFailed
	default:
		return false
	}
}

// MarkProcessed records a successful ingestion run.
func (d *Document) MarkProcessed(vectorIDs []string, now time.Time) error {
	if !d.Status.CanTransition(DocumentStatusProcessed) {
		return fmt.Errorf("cannot transition document %d from %s to %s", d.ID, d.Status, DocumentStatusProcessed)
	}
	d.Status = DocumentStatusProcessed
	d.VectorIDs = vectorIDs
	d.ProcessingError = ""
	d.UpdatedAt = now
	return nil
}

// MarkFailed records a failed ingestion run with a human-readable message.
func (d *Document) MarkFailed(message string, now time.Time) error {
	if !d.Status.CanTransition(DocumentStatusFailed) {
		return fmt.Errorf("cannot transition document %d from %s to %s", d.ID, d.Status, DocumentStatusFailed)
	}
	d.Status = DocumentStatusFailed
	d.ProcessingError = message
	d.UpdatedAt = now
	return nil
}
