package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/middleware"
	"github.com/tieubaoca/rfi-processor-be/repository"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

type UploadHandler struct {
	fileService *service.FileService
	pipeline    *service.PipelineService
	wsService   *service.WebSocketService
	runRepo     repository.RunRepo
}

func NewUploadHandler(
	fileService *service.FileService,
	pipeline *service.PipelineService,
	wsService *service.WebSocketService,
	runRepo repository.RunRepo,
) *UploadHandler {
	return &UploadHandler{
		fileService: fileService,
		pipeline:    pipeline,
		wsService:   wsService,
		runRepo:     runRepo,
	}
}

// UploadDocumentHandler accepts a PDF, registers a run for it and streams
// pipeline progress back over SSE until the run reaches a terminal status.
func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	metadata := c.Request.FormValue("metadata")
	var req types.UploadRequest
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  false,
				Message: "Invalid metadata",
			})
			return
		}
	}
	if req.Title == "" {
		req.Title = header.Filename
	}

	const maxSize = 10 << 20
	if header.Size > maxSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "File too large",
		})
		return
	}

	storedPath, err := h.fileService.SaveUpload(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	var username string
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		username = claims.Username
	}

	run := &types.ProcessingRun{
		DocumentID: uuid.NewString(),
		FileName:   req.Title,
		StorageURL: storedPath,
		Status:     types.RUN_STATUS_UPLOADED,
		Timestamp:  time.Now().Format(time.RFC3339),
		Username:   username,
	}
	if err := h.runRepo.CreateRun(c, run); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	statusChan := make(chan types.ProcessingDocumentStatus)
	errChan := make(chan error)
	go func() {
		defer close(statusChan)
		defer close(errChan)
		runCtx := &types.RunContext{Run: run}
		errChan <- h.pipeline.ProcessFile(context.Background(), runCtx, storedPath, func(status types.ProcessingDocumentStatus) {
			h.wsService.Publish(status)
			statusChan <- status
		})
	}()

	// Detect client disconnect so the SSE loop exits; the pipeline
	// goroutine finishes and persists on its own.
	clientGone := c.Writer.CloseNotify()
	for {
		select {
		case <-clientGone:
			logger.Warn("client disconnected during upload",
				zap.String("document_id", run.DocumentID))
			go drainPipeline(statusChan, errChan)
			return
		case status := <-statusChan:
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		case err := <-errChan:
			if err != nil {
				c.JSON(http.StatusInternalServerError, types.DataResponse{
					Status:  false,
					Message: err.Error(),
				})
			} else {
				c.JSON(http.StatusOK, types.DataResponse{
					Status: true,
					Data: types.UploadResponse{
						DocumentID:   run.DocumentID,
						OriginalName: req.Title,
					},
				})
			}
			return
		}
	}
}

func drainPipeline(statusChan chan types.ProcessingDocumentStatus, errChan chan error) {
	for {
		select {
		case _, ok := <-statusChan:
			if !ok {
				return
			}
		case <-errChan:
			return
		}
	}
}
