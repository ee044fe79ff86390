package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/vecindex"
)

// Source is one context chunk an answer was grounded on. SourceID is
// the 1-based label the model cites as [Source N].
type Source struct {
	SourceID   int     `json:"source_id"`
	DocumentID int64   `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Answer is the result of one question. Success=false means the model
// call failed and Text carries the error message; callers check the
// flag, it is never surfaced as a transport error.
type Answer struct {
	Query               string   `json:"query"`
	Text                string   `json:"answer"`
	Confidence          float64  `json:"confidence"`
	Sources             []Source `json:"sources"`
	RetrievedChunkCount int      `json:"retrieved_chunk_count"`
	ResponseTimeMs      int64    `json:"response_time_ms"`
	Success             bool     `json:"success"`
	Error               string   `json:"error,omitempty"`
}

const insufficientAnswer = "No sufficient information was found in the uploaded documents to answer this question."

const synthesisSystemPrompt = `You are a careful assistant that answers questions using only the provided context.

Rules:
- Use only the context below. Never bring in outside knowledge.
- If the context does not contain enough information, say so plainly instead of guessing.
- Cite every claim with the source label it came from, like [Source 2].
- Answer in the same language as the question.
- Be concrete and structure longer answers with short paragraphs or lists.`

const (
	synthesisTemperature = 0.1
)

// Completer is the generative model behind synthesis.
type Completer interface {
	Complete(ctx context.Context, req llm.CompleteRequest) (string, error)
}

// Synthesizer turns retrieved chunks into a cited answer.
type Synthesizer struct {
	model Completer

	maxAnswerTokens  int
	maxContextTokens int
	encoder          *tiktoken.Tiktoken
}

// NewSynthesizer sets up the context token counter for modelName. When
// the tokenizer is unavailable the 4-chars-per-token estimate is used
// instead.
func NewSynthesizer(model Completer, modelName string, maxAnswerTokens, maxContextTokens int) *Synthesizer {
	if maxAnswerTokens <= 0 {
		maxAnswerTokens = 1500
	}
	if maxContextTokens <= 0 {
		maxContextTokens = 6000
	}

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	}

	return &Synthesizer{
		model:            model,
		maxAnswerTokens:  maxAnswerTokens,
		maxContextTokens: maxContextTokens,
		encoder:          enc,
	}
}

// Synthesize produces an Answer from the retrieved chunks. An empty
// result set short-circuits to the fixed insufficient-information
// answer without calling the model. ResponseTimeMs is left for the
// caller, which owns the full retrieve+synthesize clock.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, retrieved []vecindex.Result) *Answer {
	if len(retrieved) == 0 {
		return &Answer{
			Query:   query,
			Text:    insufficientAnswer,
			Success: true,
		}
	}

	kept := s.fitContext(retrieved)
	contextBlock, sources := buildContext(kept)

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)
	text, err := s.model.Complete(ctx, llm.CompleteRequest{
		System:      synthesisSystemPrompt,
		User:        user,
		Temperature: synthesisTemperature,
		MaxTokens:   s.maxAnswerTokens,
	})
	if err != nil {
		return &Answer{
			Query:               query,
			Text:                fmt.Sprintf("Failed to generate an answer: %v", err),
			RetrievedChunkCount: len(retrieved),
			Success:             false,
			Error:               err.Error(),
		}
	}

	// Confidence reflects retrieval quality, so it averages every
	// chunk that passed the threshold, including any the token
	// budget kept out of the prompt.
	return &Answer{
		Query:               query,
		Text:                text,
		Confidence:          meanScore(retrieved),
		Sources:             sources,
		RetrievedChunkCount: len(retrieved),
		Success:             true,
	}
}

// fitContext drops trailing sources until the context block fits the
// token budget. The top result is always kept.
func (s *Synthesizer) fitContext(retrieved []vecindex.Result) []vecindex.Result {
	total := 0
	for i, res := range retrieved {
		total += s.countTokens(contextEntry(i+1, res))
		if total > s.maxContextTokens && i > 0 {
			return retrieved[:i]
		}
	}
	return retrieved
}

func (s *Synthesizer) countTokens(text string) int {
	if s.encoder == nil {
		return len(text) / 4
	}
	return len(s.encoder.Encode(text, nil, nil))
}

func contextEntry(label int, res vecindex.Result) string {
	m := res.Metadata
	return fmt.Sprintf("[Source %d] (document %d, chunk %d, score %.3f)\n%s",
		label, m.DocumentID, m.ChunkIndex, res.Score, m.Text)
}

func buildContext(retrieved []vecindex.Result) (string, []Source) {
	entries := make([]string, 0, len(retrieved))
	sources := make([]Source, 0, len(retrieved))
	for i, res := range retrieved {
		entries = append(entries, contextEntry(i+1, res))
		sources = append(sources, Source{
			SourceID:   i + 1,
			DocumentID: res.Metadata.DocumentID,
			ChunkIndex: res.Metadata.ChunkIndex,
			Text:       res.Metadata.Text,
			Score:      res.Score,
		})
	}
	return strings.Join(entries, "\n\n"), sources
}

func meanScore(retrieved []vecindex.Result) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	sum := 0.0
	for _, res := range retrieved {
		sum += res.Score
	}
	return sum / float64(len(retrieved))
}
