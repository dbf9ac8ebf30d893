package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/rfi-processor-be/database"
)

type fakeKnowledgeBase struct {
	retrieve func(query string) (*database.RetrievalResult, error)

	mu      sync.Mutex
	queries []string
	prompts []string
}

func (kb *fakeKnowledgeBase) RetrieveAndGenerate(ctx context.Context, query string, prompt string) (*database.RetrievalResult, error) {
	kb.mu.Lock()
	kb.queries = append(kb.queries, query)
	kb.prompts = append(kb.prompts, prompt)
	kb.mu.Unlock()
	return kb.retrieve(query)
}

func (kb *fakeKnowledgeBase) UpsertDocument(ctx context.Context, doc *database.Document, embedding []float32) error {
	return nil
}

func (kb *fakeKnowledgeBase) BatchInsertDocuments(ctx context.Context, docs []database.Document, embeddings [][]float32) error {
	return nil
}

func (kb *fakeKnowledgeBase) DeleteDocument(ctx context.Context, id string) error {
	return nil
}

const sampleQuestionBlock = "Here are the extracted questions:\n\n" +
	"1. What is your annual revenue?\n\n" +
	"2. a. How many employees do you have?\n\n" +
	"2. b. In which regions do you operate?"

func TestSplitSubQuestions(t *testing.T) {
	resolver := NewResolverService(nil)

	tests := []struct {
		name  string
		block string
		want  []string
	}{
		{
			name:  "preamble is dropped",
			block: sampleQuestionBlock,
			want: []string{
				"1. What is your annual revenue?",
				"2. a. How many employees do you have?",
				"2. b. In which regions do you operate?",
			},
		},
		{
			name:  "single segment has no questions",
			block: "Just a preamble with no question blocks",
			want:  nil,
		},
		{
			name:  "empty block",
			block: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.SplitSubQuestions(tt.block))
		})
	}
}

func TestResolveAnswersInOrder(t *testing.T) {
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			return &database.RetrievalResult{
				OutputText: "1. Our revenue is 10M.",
				Citations:  []database.Citation{{Source: "annual_report.pdf"}, {Source: "extra.pdf"}},
			}, nil
		},
	}
	resolver := NewResolverService(kb)

	records := resolver.Resolve(context.Background(), sampleQuestionBlock)
	require.Len(t, records, 3)

	assert.Equal(t, "1. What is your annual revenue?", records[0].Question)
	assert.Equal(t, AnswerLabel+"1. Our revenue is 10M.", records[0].Answer)
	assert.Equal(t, "annual_report.pdf", records[0].Citation)

	// Records come back in split order regardless of resolution order.
	assert.Equal(t, "2. a. How many employees do you have?", records[1].Question)
	assert.Equal(t, "2. b. In which regions do you operate?", records[2].Question)

	// One retrieval call per sub-question.
	assert.ElementsMatch(t, []string{
		"1. What is your annual revenue?",
		"2. a. How many employees do you have?",
		"2. b. In which regions do you operate?",
	}, kb.queries)

	// The grouped generation task is sent verbatim; the backend appends
	// the retrieved passages itself, so no substitution braces belong in it.
	for _, prompt := range kb.prompts {
		assert.NotContains(t, prompt, "{")
		assert.NotContains(t, prompt, "}")
	}
}

func TestResolveNegativeResult(t *testing.T) {
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			return &database.RetrievalResult{
				OutputText: "I could not find an exact match for this question.",
				Citations:  []database.Citation{{Source: "annual_report.pdf"}},
			}, nil
		},
	}
	resolver := NewResolverService(kb)

	records := resolver.Resolve(context.Background(), sampleQuestionBlock)
	require.Len(t, records, 3)
	for _, record := range records {
		assert.Empty(t, record.Answer)
		assert.Empty(t, record.Citation)
	}
}

func TestResolveFailureIsolation(t *testing.T) {
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			if strings.HasPrefix(query, "2. a.") {
				return nil, errors.New("backend unavailable")
			}
			return &database.RetrievalResult{OutputText: "1. Answer text."}, nil
		},
	}
	resolver := NewResolverService(kb)

	records := resolver.Resolve(context.Background(), sampleQuestionBlock)
	require.Len(t, records, 3)

	assert.Equal(t, AnswerLabel+"1. Answer text.", records[0].Answer)
	assert.Equal(t, ResolveErrorAnswer, records[1].Answer)
	assert.Empty(t, records[1].Citation)
	assert.Equal(t, AnswerLabel+"1. Answer text.", records[2].Answer)
}

func TestResolveRestoresSplitOrder(t *testing.T) {
	// The first sub-question resolves slowest; order must still hold.
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			if strings.HasPrefix(query, "1.") {
				time.Sleep(20 * time.Millisecond)
			}
			return &database.RetrievalResult{OutputText: "1. Answer for " + query}, nil
		},
	}
	resolver := NewResolverService(kb)

	records := resolver.Resolve(context.Background(), sampleQuestionBlock)
	require.Len(t, records, 3)
	assert.Equal(t, "1. What is your annual revenue?", records[0].Question)
	assert.Equal(t, AnswerLabel+"1. Answer for 1. What is your annual revenue?", records[0].Answer)
	assert.Equal(t, "2. a. How many employees do you have?", records[1].Question)
	assert.Equal(t, "2. b. In which regions do you operate?", records[2].Question)
}

func TestIsNegativeResult(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Sorry, I am unable to answer that.", true},
		{"The search results do not contain a match.", true},
		{"No answer was found.", true},
		{"I could not find the requested information.", true},
		{"There is no relevant information to extract.", true},
		{"1. Our revenue is 10M.", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNegativeResult(tt.text), tt.text)
	}
}
