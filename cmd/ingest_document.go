/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/rfi-processor-be/database"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
)

// ingestDocumentCmd represents the ingest-document command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest-document",
	Short: "Ingest a reference document into the knowledge collection",
	Long: `Extracts the text of a PDF, chunks it and inserts the chunks into the
knowledge collection the answer resolver queries.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseURL, _ := cmd.Flags().GetString("database-url")
		text2vec := cmd.Flag("text2vec").Value.String()
		filePath, _ := cmd.Flags().GetString("file")
		tags, _ := cmd.Flags().GetStringArray("tags")
		reinit, _ := cmd.Flags().GetBool("reinit")
		maxChunkTokens, _ := cmd.Flags().GetInt("chunk-tokens")

		chunker := service.NewChunkerService(types.DocumentServiceConfig{
			MaxChunkTokens: maxChunkTokens,
		})

		weaviateDb, err := database.NewWeaviateStore(database.WeaviateStoreConfig{
			Host:     databaseURL,
			APIKey:   os.Getenv("WEAVIATE_APIKEY"),
			Text2Vec: text2vec,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}
		if reinit {
			if err := weaviateDb.ReInit(); err != nil {
				log.Fatalf("Failed to reinitialize knowledge collection: %v", err)
			}
		}

		text, pages, err := chunker.ExtractDocumentText(filePath)
		if err != nil {
			log.Fatalf("Failed to extract document text: %v", err)
		}
		title := service.GetFileNameWithoutExt(filePath)
		chunks, err := chunker.ChunkText(text, types.DocumentMetadata{
			Title:      title,
			Source:     filePath,
			TotalPages: pages,
		})
		if err != nil {
			log.Fatalf("Failed to chunk document: %v", err)
		}

		docs := make([]database.Document, 0, len(chunks))
		for _, chunk := range chunks {
			docs = append(docs, database.Document{
				Content: chunk.Content,
				Metadata: database.Metadata{
					Title:  title,
					Source: filePath,
					Tags:   tags,
					Custom: map[string]string{
						"chunk": fmt.Sprintf("%d", chunk.Index),
					},
				},
				CreatedAt: time.Now().Unix(),
			})
		}
		if err := weaviateDb.BatchInsertDocuments(context.Background(), docs, nil); err != nil {
			log.Fatalf("Failed to ingest document: %v", err)
		}
		fmt.Printf("Ingested %d chunks from %s\n", len(docs), filePath)
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)

	ingestDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to ingest")
	ingestDocumentCmd.Flags().StringP("database-url", "d", "http://localhost:8080", "URL for the Weaviate database")
	ingestDocumentCmd.Flags().StringP("text2vec", "t", "text2vec-transformers", "Text2Vec model for the knowledge collection")
	ingestDocumentCmd.Flags().BoolP("reinit", "r", false, "Reinitialize the knowledge collection first")
	ingestDocumentCmd.Flags().StringArrayP("tags", "g", []string{}, "Tags for the document")
	ingestDocumentCmd.Flags().Int("chunk-tokens", 5000, "Maximum tokens per chunk")
}
