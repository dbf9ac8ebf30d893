package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/rfi-processor-be/types"
)

func tokenText(n int) string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}
	return strings.Join(tokens, " ")
}

func TestChunkTextChunkCount(t *testing.T) {
	tests := []struct {
		name      string
		tokens    int
		maxTokens int
		overlap   int
		want      int
	}{
		{
			name:      "exact multiple",
			tokens:    3000,
			maxTokens: 1000,
			overlap:   0,
			want:      3,
		},
		{
			name:      "trailing partial chunk",
			tokens:    2500,
			maxTokens: 1000,
			overlap:   0,
			want:      3,
		},
		{
			name:      "single short document",
			tokens:    10,
			maxTokens: 1000,
			overlap:   0,
			want:      1,
		},
		{
			name:      "with overlap",
			tokens:    1000,
			maxTokens: 400,
			overlap:   100,
			want:      4, // ceil(1000/300)
		},
		{
			name:      "overlap leaves trailing window",
			tokens:    900,
			maxTokens: 400,
			overlap:   100,
			want:      3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker := NewChunkerService(types.DocumentServiceConfig{
				MaxChunkTokens: tt.maxTokens,
				OverlapTokens:  tt.overlap,
			})
			chunks, err := chunker.ChunkText(tokenText(tt.tokens), types.DocumentMetadata{Source: "test.pdf"})
			require.NoError(t, err)
			assert.Len(t, chunks, tt.want)

			for i, chunk := range chunks {
				assert.Equal(t, i, chunk.Index)
				assert.NotEmpty(t, chunk.Content)
				assert.LessOrEqual(t, len(strings.Fields(chunk.Content)), tt.maxTokens)
			}
		})
	}
}

func TestChunkTextOverlapSharesTokens(t *testing.T) {
	chunker := NewChunkerService(types.DocumentServiceConfig{
		MaxChunkTokens: 10,
		OverlapTokens:  3,
	})
	chunks, err := chunker.ChunkText(tokenText(25), types.DocumentMetadata{Source: "test.pdf"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	assert.Equal(t, first[len(first)-3:], second[:3])
}

func TestChunkTextEmptyDocument(t *testing.T) {
	chunker := NewChunkerService(DefaultDocumentServiceConfig)

	for _, text := range []string{"", "   ", "\n\t \n"} {
		_, err := chunker.ChunkText(text, types.DocumentMetadata{Source: "empty.pdf"})
		assert.ErrorIs(t, err, types.ErrEmptyDocument)
	}
}

func TestNewChunkerServiceClampsInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      types.DocumentServiceConfig
		wantMax     int
		wantOverlap int
	}{
		{
			name:        "zero max falls back to default",
			config:      types.DocumentServiceConfig{},
			wantMax:     1000,
			wantOverlap: 0,
		},
		{
			name:        "overlap not smaller than window resets",
			config:      types.DocumentServiceConfig{MaxChunkTokens: 100, OverlapTokens: 100},
			wantMax:     100,
			wantOverlap: 0,
		},
		{
			name:        "negative overlap resets",
			config:      types.DocumentServiceConfig{MaxChunkTokens: 100, OverlapTokens: -5},
			wantMax:     100,
			wantOverlap: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker := NewChunkerService(tt.config)
			assert.Equal(t, tt.wantMax, chunker.maxChunkTokens)
			assert.Equal(t, tt.wantOverlap, chunker.overlapTokens)
		})
	}
}
