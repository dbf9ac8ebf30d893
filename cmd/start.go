/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/rfi-processor-be/config"
	"github.com/tieubaoca/rfi-processor-be/database"
	"github.com/tieubaoca/rfi-processor-be/handler"
	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/middleware"
	"github.com/tieubaoca/rfi-processor-be/repository"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the document processing server",
	Long:  `Starts the HTTP server handling uploads, processing runs and report downloads`,
	Run: func(cmd *cobra.Command, args []string) {

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logger.Sync()

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

		mongoClient, err := database.NewMongoClient(context.Background(), cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoDb := mongoClient.Database("rfi-processor")

		// init repos
		userRepo := repository.NewUserRepo(mongoDb.Collection("users"))
		runRepo := repository.NewRunRepo(mongoDb)
		reportRepo := repository.NewReportRepo(mongoDb)

		// init services
		chunker := service.NewChunkerService(types.DocumentServiceConfig{
			MaxChunkTokens: cfg.Chunker.MaxChunkTokens,
			OverlapTokens:  cfg.Chunker.OverlapTokens,
		})
		extractor := service.NewExtractorService(generator)
		resolver := service.NewResolverService(weaviateDb)
		pipeline := service.NewPipelineService(chunker, extractor, resolver, runRepo, reportRepo)
		userService := service.NewUserService(userRepo)
		fileService := service.NewFileService(cfg.UploadDir)
		wsService := service.NewWebSocketService()
		exportService := service.NewExportService()

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		loginHandler := handler.NewLoginHandler(userService)
		uploadHandler := handler.NewUploadHandler(fileService, pipeline, wsService, runRepo)
		runHandler := handler.NewRunHandler(runRepo, reportRepo, exportService)
		userMngHandler := handler.NewUserManageHandler(userService)

		// Setup Gin router
		router := gin.Default()

		// Apply global middleware
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		apiV1.POST("/login", loginHandler.HandleLogin)

		// Protected user routes
		userRoutes := apiV1.Group("/")
		userRoutes.Use(middleware.AuthMiddleware())
		{
			userRoutes.POST("/documents/upload", uploadHandler.UploadDocumentHandler)
			userRoutes.GET("/runs", runHandler.HandleListRuns)
			userRoutes.GET("/runs/history", runHandler.HandleDownloadHistory)
			userRoutes.GET("/runs/:id", runHandler.HandleGetRun)
			userRoutes.GET("/runs/:id/report", runHandler.HandleDownloadReport)
			userRoutes.GET("/runs/progress", func(c *gin.Context) {
				wsService.HandleProgress(c.Writer, c.Request)
			})
		}

		// Admin routes - require admin authentication
		adminRoutes := router.Group("/admin/api/v1")
		adminRoutes.Use(middleware.AdminAuthMiddleware())
		{
			adminRoutes.POST("/users/create", userMngHandler.HandleCreateUser)
			adminRoutes.GET("/users/paginate", userMngHandler.HandlePaginateUser)
			adminRoutes.GET("/users/get", userMngHandler.HandleGetUser)
			adminRoutes.PUT("/users/update", userMngHandler.HandleUpdateUser)
			adminRoutes.DELETE("/users/delete", userMngHandler.HandleDeleteUser)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

// newGenerator picks the configured text generation backend.
func newGenerator(cfg *config.Config) (service.Generator, error) {
	if cfg.AIProvider == "gemini" {
		return service.NewGeminiService(cfg.GeminiAPIKeys, cfg.Model, cfg.MaxOutputTokens)
	}
	return service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model, cfg.MaxOutputTokens), nil
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	startServerCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
}
