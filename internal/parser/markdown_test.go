package parser

import (
	"strings"
	"testing"
)

func TestMarkdownExtractor_HeadingsAndBody(t *testing.T) {
	input := "# Report\n\nIntro paragraph.\n\n## Findings\n\nDetail one.\n\nDetail two.\n"
	p := &MarkdownExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "report.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ex.Meta.Title != "Report" {
		t.Errorf("expected title from h1, got %q", ex.Meta.Title)
	}
	for _, want := range []string{"Report", "Intro paragraph.", "Findings", "Detail one.", "Detail two."} {
		if !strings.Contains(ex.FullText, want) {
			t.Errorf("expected full text to contain %q, got %q", want, ex.FullText)
		}
	}
}

func TestMarkdownExtractor_ParagraphAppearsOnce(t *testing.T) {
	input := "# Title\n\nUnique paragraph marker.\n\n- item one\n- item two\n"
	p := &MarkdownExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Unique paragraph marker.", "item one", "item two"} {
		if got := strings.Count(ex.FullText, want); got != 1 {
			t.Errorf("%q appears %d times in %q, want exactly 1", want, got, ex.FullText)
		}
	}
}

func TestMarkdownExtractor_NoHeadings(t *testing.T) {
	input := "Just a plain paragraph with no structure."
	p := &MarkdownExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Meta.Title != "plain" {
		t.Errorf("expected filename title fallback, got %q", ex.Meta.Title)
	}
	if !strings.Contains(ex.FullText, "plain paragraph") {
		t.Errorf("expected body text, got %q", ex.FullText)
	}
}

func TestCSVExtractor_HeaderLabeledRows(t *testing.T) {
	input := "name,age\nalice,30\nbob,25\n"
	p := &CSVExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Headers: name, age", "name: alice, age: 30", "name: bob, age: 25"} {
		if !strings.Contains(ex.FullText, want) {
			t.Errorf("expected %q in %q", want, ex.FullText)
		}
	}
}

func TestHTMLExtractor_SkipsNonContent(t *testing.T) {
	input := `<html><head><title>Doc Title</title><style>p{}</style></head>
<body><script>var x;</script><h1>Heading</h1><p>Body text.</p></body></html>`
	p := &HTMLExtractor{}
	ex, err := p.Extract(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Meta.Title != "Doc Title" {
		t.Errorf("expected title from <title>, got %q", ex.Meta.Title)
	}
	if !strings.Contains(ex.FullText, "Heading") || !strings.Contains(ex.FullText, "Body text.") {
		t.Errorf("expected heading and body, got %q", ex.FullText)
	}
	if strings.Contains(ex.FullText, "var x") || strings.Contains(ex.FullText, "p{}") {
		t.Errorf("expected script/style to be skipped, got %q", ex.FullText)
	}
}
