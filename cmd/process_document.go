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

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/rfi-processor-be/config"
	"github.com/tieubaoca/rfi-processor-be/database"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
	"github.com/tieubaoca/rfi-processor-be/utils"
)

// processDocumentCmd represents the process-document command
var processDocumentCmd = &cobra.Command{
	Use:   "process-document",
	Short: "Run the question pipeline over a document",
	Long: `Runs the full chunk, extract and resolve pipeline over a PDF without the
server: results are printed to the terminal and optionally written to a
Word document. No run state is persisted.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		outputPath, _ := cmd.Flags().GetString("output")

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		generator, err := newGenerator(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize AI service: %v", err)
		}
		weaviateDb, err := database.NewWeaviateStore(database.WeaviateStoreConfig{
			Host:         cfg.WeaviateStoreConfig.Host,
			APIKey:       cfg.WeaviateStoreConfig.APIKey,
			Text2Vec:     cfg.WeaviateStoreConfig.Text2Vec,
			ModuleConfig: cfg.WeaviateStoreConfig.ModuleConfig,
			ResultLimit:  cfg.WeaviateStoreConfig.ResultLimit,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}

		chunker := service.NewChunkerService(types.DocumentServiceConfig{
			MaxChunkTokens: cfg.Chunker.MaxChunkTokens,
			OverlapTokens:  cfg.Chunker.OverlapTokens,
		})
		extractor := service.NewExtractorService(generator)
		resolver := service.NewResolverService(weaviateDb)
		pipeline := service.NewPipelineService(chunker, extractor, resolver, nil, nil)

		// Stage the file into the upload directory, same as server uploads.
		storedPath, err := utils.CopyFileWithTimestamp(filePath, cfg.UploadDir)
		if err != nil {
			log.Fatalf("Failed to stage document: %v", err)
		}

		runCtx := &types.RunContext{
			Run: &types.ProcessingRun{
				DocumentID: uuid.NewString(),
				FileName:   service.GetFileNameWithoutExt(filePath),
				StorageURL: storedPath,
				Status:     types.RUN_STATUS_UPLOADED,
				Timestamp:  time.Now().Format(time.RFC3339),
			},
		}

		err = pipeline.ProcessFile(context.Background(), runCtx, storedPath, func(status types.ProcessingDocumentStatus) {
			fmt.Printf("\rProcessing chunk %d/%d (%d answers found)",
				status.ProcessedChunks, status.TotalChunks, status.AnswersFound)
		})
		fmt.Println()
		if err != nil {
			log.Fatalf("Processing failed: %v", err)
		}

		printReport(runCtx.Records)

		if outputPath != "" {
			out, err := os.Create(outputPath)
			if err != nil {
				log.Fatalf("Failed to create output file: %v", err)
			}
			defer out.Close()
			if err := service.NewExportService().WriteReportDocument(runCtx.Records, out); err != nil {
				log.Fatalf("Failed to write report document: %v", err)
			}
			fmt.Println("Report written to", outputPath)
		}
	},
}

func printReport(records []types.AnswerRecord) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if len(records) == 0 {
		yellow.Println("No questions were found in the document.")
		return
	}
	for i, record := range records {
		cyan.Printf("Question %d:\n", i+1)
		bold.Println(record.Question)
		if record.Answer == "" {
			yellow.Println("No answer found for this question.")
		} else {
			fmt.Println(record.Answer)
			if record.Citation != "" {
				fmt.Println("Source:", record.Citation)
			}
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(processDocumentCmd)

	processDocumentCmd.Flags().StringP("file", "f", "", "Path to the PDF to process")
	processDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	processDocumentCmd.Flags().StringP("output", "o", "", "Write the report to this .docx path")
}
