package service

import "strings"

// ChunkConfig controls how extracted text is split before embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// chunkText splits text into overlapping windows of at most cfg.Size runes.
// Windows are truncated at the last period, newline, or space found in them
// so chunks end on a natural boundary; the next window starts Overlap runes
// before the previous one ended. A window with no boundary is kept whole so
// the loop always makes progress.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.Size {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + cfg.Size
		window := runes[start:min(end, len(runes))]

		if end < len(runes) {
			if breakPoint := lastBoundary(window); breakPoint > 0 {
				window = window[:breakPoint+1]
				end = start + len(window)
			}
		}

		if chunk := strings.TrimSpace(string(window)); chunk != "" {
			chunks = append(chunks, chunk)
		}

		nextStart := end - cfg.Overlap
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// lastBoundary returns the index of the rightmost period, newline, or space
// in the window, or -1 if none exists.
func lastBoundary(window []rune) int {
	lastPeriod, lastNewline, lastSpace := -1, -1, -1
	for i, r := range window {
		switch r {
		case '.':
			lastPeriod = i
		case '\n':
			lastNewline = i
		case ' ':
			lastSpace = i
		}
	}
	return max(lastPeriod, lastNewline, lastSpace)
}
