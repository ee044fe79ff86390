package parser

import (
	"strings"
	"testing"
)

func TestTextExtractor_ParagraphNormalization(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ex.Meta.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", ex.Meta.Title)
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if ex.FullText != want {
		t.Errorf("expected %q, got %q", want, ex.FullText)
	}
	if ex.TotalPages != 1 || len(ex.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(ex.Pages))
	}
	if ex.Pages[0].CharCount != len(ex.FullText) {
		t.Errorf("page char count %d, want %d", ex.Pages[0].CharCount, len(ex.FullText))
	}
}

func TestTextExtractor_EmptyInput(t *testing.T) {
	p := &TextExtractor{}
	ex, err := p.Extract(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.FullText != "" {
		t.Errorf("expected empty text, got %q", ex.FullText)
	}
	if ex.TotalPages != 0 || len(ex.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(ex.Pages))
	}
}

func TestTextExtractor_MultipleBlankLines(t *testing.T) {
	// Runs of blank lines collapse to a single paragraph break.
	input := "Para one.\n\n\n\nPara two."
	p := &TextExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.FullText != "Para one.\n\nPara two." {
		t.Errorf("unexpected text: %q", ex.FullText)
	}
}

func TestForFile_SupportedFormats(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.txt", "c.md", "d.csv", "e.html", "f.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
	}
	if _, err := ForFile("x.exe"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestIsSupportedExtension_CaseInsensitive(t *testing.T) {
	if !IsSupportedExtension("REPORT.PDF") {
		t.Error("expected uppercase extension to be supported")
	}
	if IsSupportedExtension("archive.zip") {
		t.Error("expected .zip to be unsupported")
	}
}

func TestJoinPages_PageMarkers(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "first"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "third"},
	}
	got := joinPages(pages)
	want := "--- Page 1 ---\nfirst\n--- Page 3 ---\nthird"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestValidatePDF_RejectsEmptyAndOversized(t *testing.T) {
	if v := ValidatePDF(nil, 1024); v.Valid {
		t.Error("expected empty file to be invalid")
	}
	big := make([]byte, 2048)
	v := ValidatePDF(big, 1024)
	if v.Valid {
		t.Error("expected oversized file to be invalid")
	}
	if !strings.Contains(v.Error, "too large") {
		t.Errorf("expected size error, got %q", v.Error)
	}
}

func TestValidatePDF_RejectsGarbage(t *testing.T) {
	v := ValidatePDF([]byte("not a pdf at all"), 1<<20)
	if v.Valid {
		t.Error("expected non-PDF bytes to be invalid")
	}
}
