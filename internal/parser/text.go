package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	text := strings.Join(paragraphs, "\n\n")
	return singleSection(text, filename), nil
}

// singleSection wraps un-paginated content as a one-page extraction.
func singleSection(text, filename string) *Extraction {
	ex := &Extraction{
		FullText: strings.TrimSpace(text),
		Meta:     Meta{Title: titleFromFilename(filename)},
	}
	if ex.FullText != "" {
		ex.Pages = []Page{{Number: 1, Text: ex.FullText, CharCount: len(ex.FullText)}}
		ex.TotalPages = 1
	}
	return ex
}
