package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Validation reports whether a PDF is usable before any indexing work.
type Validation struct {
	Valid              bool   `json:"valid"`
	FileSizeBytes      int64  `json:"file_size_bytes"`
	PageCount          int    `json:"page_count"`
	HasExtractableText bool   `json:"has_extractable_text"`
	Error              string `json:"error,omitempty"`
}

// ValidatePDF checks size, structure and readability of a PDF without
// extracting it fully. Rejection here happens before any side effect.
func ValidatePDF(data []byte, maxBytes int64) Validation {
	size := int64(len(data))
	if size == 0 {
		return Validation{Error: "file is empty"}
	}
	if size > maxBytes {
		return Validation{
			FileSizeBytes: size,
			Error:         fmt.Sprintf("file too large: %.2fMB (max: %dMB)", float64(size)/(1024*1024), maxBytes/(1024*1024)),
		}
	}

	tmp, err := os.CreateTemp("", "docqa-validate-*.pdf")
	if err != nil {
		return Validation{FileSizeBytes: size, Error: "create temp file: " + err.Error()}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return Validation{FileSizeBytes: size, Error: "write temp file: " + err.Error()}
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return Validation{FileSizeBytes: size, Error: "not a readable PDF: " + err.Error()}
	}
	defer f.Close()

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return Validation{FileSizeBytes: size, Error: "PDF has no pages"}
	}

	// Probe the first page; documents without a text layer index to nothing.
	hasText := false
	if page := reader.Page(1); !page.V.IsNull() {
		if text, err := page.GetPlainText(nil); err == nil {
			hasText = strings.TrimSpace(text) != ""
		}
	}

	return Validation{
		Valid:              true,
		FileSizeBytes:      size,
		PageCount:          pageCount,
		HasExtractableText: hasText,
	}
}
