package database

import (
	"context"
)

// Document represents one entry of the knowledge collection.
type Document struct {
	ID        string   `bson:"_id" json:"id"`
	Content   string   `bson:"content" json:"content"`
	Metadata  Metadata `bson:"metadata" json:"metadata"`
	CreatedAt int64    `bson:"created_at" json:"created_at"`
}

// Metadata contains additional document information.
type Metadata struct {
	Title  string            `bson:"title" json:"title"`
	Source string            `bson:"source" json:"source"`
	Tags   []string          `bson:"tags" json:"tags"`
	Custom map[string]string `bson:"custom" json:"custom"`
}

// Citation points at a retrieved reference that supports a generated answer.
type Citation struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt,omitempty"`
}

// RetrievalResult is the response of one retrieve-and-generate call: the
// generated text plus the references it was grounded on, in retrieval order.
type RetrievalResult struct {
	OutputText string     `json:"output_text"`
	Citations  []Citation `json:"citations"`
}

// KnowledgeBase is the retrieval surface of the knowledge collection.
type KnowledgeBase interface {
	// RetrieveAndGenerate runs a semantic search for query over the
	// collection and generates one grouped answer from the hits. The
	// prompt is the generation task; the backend appends the retrieved
	// passages to it, so the prompt needs no placeholder.
	RetrieveAndGenerate(ctx context.Context, query string, prompt string) (*RetrievalResult, error)

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document, embedding []float32) error
	BatchInsertDocuments(ctx context.Context, docs []Document, embeddings [][]float32) error
	DeleteDocument(ctx context.Context, id string) error
}
