package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/aura-systems/aura/internal/domain"
)

func extractText(data []byte) ([]Candidate, error) {
	if !utf8.Valid(data) {
		return nil, domain.NewExtractionError(domain.FileTypeText, errInvalidUTF8)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []Candidate{{Content: text}}, nil
}

var errInvalidUTF8 = invalidUTF8Error{}

type invalidUTF8Error struct{}

func (invalidUTF8Error) Error() string { return "file is not valid UTF-8 text" }
