package service

import (
	"context"
	"time"

	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/repository"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

// ProgressFunc receives per-chunk progress while a run is processing.
type ProgressFunc func(status types.ProcessingDocumentStatus)

// PipelineService drives one run through chunk -> extract -> resolve and
// assembles the ordered report. Chunks are processed strictly sequentially
// and the RunContext is owned by a single run for its whole duration; only
// the resolver fans out, within one chunk, and returns in split order.
//
// Both repositories may be nil (CLI use); run state then lives only in the
// RunContext. A failed persistence write is reported but never blocks the
// in-memory report.
type PipelineService struct {
	chunker    *ChunkerService
	extractor  *ExtractorService
	resolver   *ResolverService
	runRepo    repository.RunRepo
	reportRepo repository.ReportRepo
}

func NewPipelineService(
	chunker *ChunkerService,
	extractor *ExtractorService,
	resolver *ResolverService,
	runRepo repository.RunRepo,
	reportRepo repository.ReportRepo,
) *PipelineService {
	return &PipelineService{
		chunker:    chunker,
		extractor:  extractor,
		resolver:   resolver,
		runRepo:    runRepo,
		reportRepo: reportRepo,
	}
}

// ProcessFile extracts the text of the uploaded file and runs the pipeline
// over it. The run is PROCESSING before the document is touched, so an
// extraction failure lands on PROCESSING -> ERROR.
func (s *PipelineService) ProcessFile(ctx context.Context, runCtx *types.RunContext, filePath string, progress ProgressFunc) error {
	if err := s.transition(ctx, runCtx, types.RUN_STATUS_PROCESSING, nil); err != nil {
		return err
	}
	text, totalPages, err := s.chunker.ExtractDocumentText(filePath)
	if err != nil {
		s.markError(ctx, runCtx, err)
		return err
	}
	logger.Info("document text extracted",
		zap.String("document_id", runCtx.Run.DocumentID),
		zap.Int("pages", totalPages))
	return s.ProcessText(ctx, runCtx, text, progress)
}

// ProcessText runs the full pipeline over already-extracted text. The
// returned error is the one that moved the run to ERROR; a nil error means
// the run reached COMPLETED.
func (s *PipelineService) ProcessText(ctx context.Context, runCtx *types.RunContext, text string, progress ProgressFunc) error {
	if err := s.transition(ctx, runCtx, types.RUN_STATUS_PROCESSING, nil); err != nil {
		return err
	}

	metadata := types.DocumentMetadata{
		Title:  runCtx.Run.FileName,
		Source: runCtx.Run.StorageURL,
	}
	chunks, err := s.chunker.ChunkText(text, metadata)
	if err != nil {
		s.markError(ctx, runCtx, err)
		return err
	}
	runCtx.TotalChunks = len(chunks)
	logger.Info("document chunked",
		zap.String("document_id", runCtx.Run.DocumentID),
		zap.Int("chunks", len(chunks)))

	for _, chunk := range chunks {
		questions, err := s.extractor.ExtractQuestions(ctx, chunk)
		if err != nil {
			// This chunk contributes nothing; the run goes on.
			logger.Warn("question extraction failed, skipping chunk",
				zap.String("document_id", runCtx.Run.DocumentID),
				zap.Int("chunk", chunk.Index),
				zap.Error(err))
		} else if questions != "" {
			records := s.resolver.Resolve(ctx, questions)
			runCtx.Records = append(runCtx.Records, records...)
		}
		runCtx.ChunksProcessed++

		if progress != nil {
			progress(types.ProcessingDocumentStatus{
				DocumentID:      runCtx.Run.DocumentID,
				Status:          types.RUN_STATUS_PROCESSING,
				Message:         "Processing document",
				Progress:        float64(runCtx.ChunksProcessed) / float64(runCtx.TotalChunks),
				TotalChunks:     runCtx.TotalChunks,
				ProcessedChunks: runCtx.ChunksProcessed,
				AnswersFound:    len(runCtx.Records),
			})
		}
	}

	s.saveReport(ctx, runCtx)

	return s.transition(ctx, runCtx, types.RUN_STATUS_COMPLETED, &types.RunMetadata{
		ChunksProcessed: runCtx.ChunksProcessed,
		TotalChunks:     runCtx.TotalChunks,
		AnswersFound:    len(runCtx.Records),
	})
}

// transition moves the run to the next status and persists it. Terminal
// runs never transition again.
func (s *PipelineService) transition(ctx context.Context, runCtx *types.RunContext, status string, metadata *types.RunMetadata) error {
	run := runCtx.Run
	if run.IsTerminal() {
		logger.Error("refusing status transition on terminal run",
			zap.String("document_id", run.DocumentID),
			zap.String("from", run.Status),
			zap.String("to", status))
		return types.ErrRunTerminal
	}
	if run.Status == status && metadata == nil {
		return nil
	}
	run.Status = status
	run.Timestamp = time.Now().Format(time.RFC3339)
	if metadata != nil {
		run.Metadata = metadata
	}
	if s.runRepo == nil {
		return nil
	}
	if err := s.runRepo.UpdateRun(ctx, run); err != nil {
		// Reported to the operator; the in-memory report stays usable.
		logger.Error("failed to persist run status",
			zap.String("document_id", run.DocumentID),
			zap.String("status", status),
			zap.Error(err))
	}
	return nil
}

func (s *PipelineService) markError(ctx context.Context, runCtx *types.RunContext, cause error) {
	if err := s.transition(ctx, runCtx, types.RUN_STATUS_ERROR, &types.RunMetadata{
		ErrorMessage: cause.Error(),
	}); err != nil {
		logger.Error("failed to mark run as errored",
			zap.String("document_id", runCtx.Run.DocumentID),
			zap.Error(err))
	}
}

func (s *PipelineService) saveReport(ctx context.Context, runCtx *types.RunContext) {
	if s.reportRepo == nil {
		return
	}
	report := &types.Report{
		DocumentID: runCtx.Run.DocumentID,
		Records:    runCtx.Records,
		CreatedAt:  time.Now().Unix(),
	}
	if err := s.reportRepo.SaveReport(ctx, report); err != nil {
		logger.Error("failed to persist report",
			zap.String("document_id", runCtx.Run.DocumentID),
			zap.Error(err))
	}
}
