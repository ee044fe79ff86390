package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files via ledongthuc/pdf.
type PDFExtractor struct{}

func (p *PDFExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docqa-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, extractPage(reader, i))
	}

	ex := &Extraction{
		FullText:   joinPages(pages),
		Pages:      pages,
		TotalPages: numPages,
		Meta:       pdfMeta(reader, filename),
	}
	return ex, nil
}

// extractPage pulls text from one page. A failing page records its error
// and extraction of the remaining pages continues.
func extractPage(reader *pdflib.Reader, num int) Page {
	page := reader.Page(num)
	if page.V.IsNull() {
		return Page{Number: num, Error: "page is null"}
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return Page{Number: num, Error: err.Error()}
	}
	return Page{Number: num, Text: text, CharCount: len(text)}
}

func pdfMeta(reader *pdflib.Reader, filename string) Meta {
	meta := Meta{Title: titleFromFilename(filename)}

	trailer := reader.Trailer()
	if trailer.IsNull() {
		return meta
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return meta
	}

	if v := infoString(info, "Title"); v != "" {
		meta.Title = v
	}
	meta.Author = infoString(info, "Author")
	meta.Subject = infoString(info, "Subject")
	meta.Creator = infoString(info, "Creator")
	meta.Producer = infoString(info, "Producer")
	return meta
}

func infoString(info pdflib.Value, key string) string {
	v := info.Key(key)
	if v.IsNull() || v.Kind() != pdflib.String {
		return ""
	}
	return strings.TrimSpace(v.Text())
}
