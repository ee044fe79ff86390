package chunker

import "strings"

// charsPerToken is the approximation used throughout: 1 token ≈ 4 characters.
// Chunking does not need exact tokenization, so no tokenizer dependency here.
const charsPerToken = 4

// boundaryLookback bounds how far back from the naive end position we search
// for a sentence boundary.
const boundaryLookback = 200

// sentenceMarkers are scanned for the latest occurrence when trimming a chunk
// to a sentence boundary. The marker stays inside the chunk.
var sentenceMarkers = []string{". ", "! ", "? ", "\n\n"}

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	Index           int    `json:"chunk_index"`
	Text            string `json:"text"`
	StartChar       int    `json:"start_char"`
	EndChar         int    `json:"end_char"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Config controls chunking behavior. Sizes are in tokens.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1024,
		ChunkOverlap: 200,
	}
}

// Split breaks text into bounded, overlapping, sentence-boundary-aware
// chunks. It is pure: the same input and config always yield the same
// sequence. Empty or whitespace-only input yields nil. Emitted chunks
// always have non-empty trimmed text and densely sequential indices.
func Split(text string, cfg Config) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1024
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}

	chunkChars := cfg.ChunkSize * charsPerToken
	overlapChars := cfg.ChunkOverlap * charsPerToken

	var chunks []Chunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + chunkChars
		last := end >= len(text)
		if last {
			end = len(text)
		} else {
			end = sentenceBoundary(text, start, end)
		}

		slice := strings.TrimSpace(text[start:end])
		if slice != "" {
			chunks = append(chunks, Chunk{
				Index:           index,
				Text:            slice,
				StartChar:       start,
				EndChar:         end,
				CharCount:       len(slice),
				EstimatedTokens: len(slice) / charsPerToken,
			})
			index++
		}

		if last {
			break
		}

		// Step back through the overlap; start+1 guarantees forward
		// progress even when overlap >= chunk size.
		next := end - overlapChars
		if next < start+1 {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// sentenceBoundary finds the latest sentence-ending marker within the
// lookback window before end and returns the position just past it.
// If no marker lands past start, the naive end is kept.
func sentenceBoundary(text string, start, end int) int {
	searchStart := end - boundaryLookback
	if searchStart < start {
		searchStart = start
	}

	best := -1
	for _, marker := range sentenceMarkers {
		pos := strings.LastIndex(text[searchStart:end], marker)
		if pos < 0 {
			continue
		}
		markerEnd := searchStart + pos + len(marker) - 1
		if markerEnd > best {
			best = markerEnd
		}
	}

	if best > start {
		return best + 1
	}
	return end
}
