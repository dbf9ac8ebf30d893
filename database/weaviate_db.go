package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

const BATCH_SIZE = 200

const DEFAULT_RESULT_LIMIT = 5

var (
	KNOWLEDGE_CLASS        = "KnowledgeDocument"
	KNOWLEDGE_CLASS_OBJECT = &models.Class{
		Class: KNOWLEDGE_CLASS,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "tags", DataType: []string{"text[]"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		VectorIndexType: "hnsw",
	}
)

// WeaviateStore holds the knowledge collection the answer resolver queries.
type WeaviateStore struct {
	client      *weaviate.Client
	resultLimit int
}

type WeaviateStoreConfig struct {
	Host         string
	APIKey       string
	Text2Vec     string
	ModuleConfig map[string]interface{}
	ResultLimit  int
}

func NewWeaviateStore(config WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(config.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(config.Host, scheme+"://")
	cfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{
			Value: config.APIKey,
		}
		cfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     config.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	KNOWLEDGE_CLASS_OBJECT.Vectorizer = config.Text2Vec
	KNOWLEDGE_CLASS_OBJECT.ModuleConfig = config.ModuleConfig
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasKnowledgeClass := false
	for _, class := range schema.Classes {
		if class.Class == KNOWLEDGE_CLASS {
			hasKnowledgeClass = true
			break
		}
	}
	// Create the knowledge class if it doesn't exist
	if !hasKnowledgeClass {
		err = client.Schema().ClassCreator().WithClass(KNOWLEDGE_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s class: %v", KNOWLEDGE_CLASS, err)
		}
	}
	resultLimit := config.ResultLimit
	if resultLimit <= 0 {
		resultLimit = DEFAULT_RESULT_LIMIT
	}
	return &WeaviateStore{
		client:      client,
		resultLimit: resultLimit,
	}, nil
}

func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(KNOWLEDGE_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete %s class: %v", KNOWLEDGE_CLASS, err)
	}

	err = s.client.Schema().ClassCreator().WithClass(KNOWLEDGE_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create %s class: %v", KNOWLEDGE_CLASS, err)
	}
	return nil
}

func (s *WeaviateStore) UpsertDocument(ctx context.Context, doc *Document, embedding []float32) error {
	properties := map[string]interface{}{
		"content":   doc.Content,
		"title":     doc.Metadata.Title,
		"source":    doc.Metadata.Source,
		"tags":      doc.Metadata.Tags,
		"createdAt": doc.CreatedAt,
	}

	creator := s.client.Data().Creator().
		WithClassName(KNOWLEDGE_CLASS).
		WithProperties(properties)

	if embedding != nil {
		creator = creator.WithVector(embedding)
	}

	upsertResult, err := creator.Do(ctx)
	if err != nil {
		return err
	}
	logger.Debug("upserted knowledge document", zap.String("id", string(upsertResult.Object.ID)))
	return nil
}

func (s *WeaviateStore) BatchInsertDocuments(ctx context.Context, docs []Document, embeddings [][]float32) error {
	total := len(docs)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()

		for j := i; j < end; j++ {
			properties := map[string]interface{}{
				"content":   docs[j].Content,
				"title":     docs[j].Metadata.Title,
				"source":    docs[j].Metadata.Source,
				"tags":      docs[j].Metadata.Tags,
				"createdAt": docs[j].CreatedAt,
			}

			if embeddings != nil && j < len(embeddings) {
				batcher = batcher.WithObjects(&models.Object{
					Class:      KNOWLEDGE_CLASS,
					Properties: properties,
					Vector:     embeddings[j],
				})
			} else {
				batcher = batcher.WithObjects(&models.Object{
					Class:      KNOWLEDGE_CLASS,
					Properties: properties,
				})
			}
		}

		_, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}

		logger.Info("inserted knowledge batch",
			zap.Int("from", i), zap.Int("to", end), zap.Int("total", total))
	}

	return nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, id string) error {
	return s.client.Data().Deleter().
		WithClassName(KNOWLEDGE_CLASS).
		WithID(id).
		Do(ctx)
}

// RetrieveAndGenerate runs one semantic retrieval for query over the
// knowledge collection and generates a single grouped answer from the top
// hits using prompt. The retrieved documents come back as citations in
// retrieval order.
func (s *WeaviateStore) RetrieveAndGenerate(ctx context.Context, query string, prompt string) (*RetrievalResult, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}
	gs := graphql.NewGenerativeSearch().GroupedResult(prompt)
	response, err := s.client.GraphQL().Get().
		WithClassName(KNOWLEDGE_CLASS).
		WithFields(fields...).
		WithGenerativeSearch(gs).
		WithNearText(s.client.GraphQL().NearTextArgBuilder().
			WithConcepts([]string{query})).
		WithLimit(s.resultLimit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("retrieve and generate failed: %v", response.Errors[0].Message)
	}

	result := &RetrievalResult{}
	data, ok := response.Data["Get"].(map[string]interface{})[KNOWLEDGE_CLASS].([]interface{})
	if !ok {
		return result, nil
	}
	for i, item := range data {
		doc, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		source, _ := doc["source"].(string)
		content, _ := doc["content"].(string)
		result.Citations = append(result.Citations, Citation{
			Source:  source,
			Excerpt: truncateString(content, 200),
		})
		// The grouped generation is attached to the first returned object.
		if i == 0 {
			if additional, ok := doc["_additional"].(map[string]interface{}); ok {
				if generate, ok := additional["generate"].(map[string]interface{}); ok {
					if generate["error"] == nil {
						result.OutputText, _ = generate["groupedResult"].(string)
					}
				}
			}
		}
	}
	return result, nil
}

// Helper function to truncate long strings for citation excerpts
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
