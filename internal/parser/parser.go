package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Extraction is the result of pulling text out of a document.
type Extraction struct {
	FullText   string `json:"full_text"`
	Pages      []Page `json:"pages"`
	TotalPages int    `json:"total_pages"`
	Meta       Meta   `json:"metadata"`
}

// Page holds the extracted text of one page (or logical section for
// formats without pages). A non-empty Error means extraction of this
// page failed; the rest of the document is still usable.
type Page struct {
	Number    int    `json:"page_number"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
	Error     string `json:"error,omitempty"`
}

// Meta carries document-level metadata where the format provides it.
type Meta struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
}

// Extractor converts raw document bytes into an Extraction.
type Extractor interface {
	Extract(r io.Reader, filename string) (*Extraction, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".docx": true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// joinPages assembles FullText from page texts with page markers, the
// format downstream chunking and citations see.
func joinPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s", p.Number, p.Text)
	}
	return strings.TrimSpace(b.String())
}

// titleFromFilename strips the extension for use as a fallback title.
func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
