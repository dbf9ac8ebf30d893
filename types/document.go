package types

// DocumentChunk is one token-bounded window of a source document's text.
// Chunks are immutable once produced and live only for one processing run.
type DocumentChunk struct {
	Index    int              // Position of the chunk within the document
	Content  string           // The actual text content
	Metadata DocumentMetadata // Associated metadata for the chunk
}

// DocumentMetadata contains source information shared by all chunks of
// one document.
type DocumentMetadata struct {
	Title      string // Title of the document
	Source     string // Source file path or storage locator
	TotalPages int    // Total number of pages in the document
}

// DocumentServiceConfig contains configuration options for chunking.
type DocumentServiceConfig struct {
	MaxChunkTokens int // Maximum number of tokens per chunk
	OverlapTokens  int // Number of tokens shared between consecutive chunks
}
