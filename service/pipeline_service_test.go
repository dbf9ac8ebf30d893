package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/rfi-processor-be/database"
	"github.com/tieubaoca/rfi-processor-be/types"
)

type fakeRunRepo struct {
	statuses  []string
	updateErr error
}

func (r *fakeRunRepo) CreateRun(ctx context.Context, run *types.ProcessingRun) error {
	return nil
}

func (r *fakeRunRepo) GetRun(ctx context.Context, documentID string) (*types.ProcessingRun, error) {
	return nil, errors.New("not found")
}

func (r *fakeRunRepo) ListRuns(ctx context.Context, username string, limit, offset int64) ([]*types.ProcessingRun, error) {
	return nil, nil
}

func (r *fakeRunRepo) UpdateRun(ctx context.Context, run *types.ProcessingRun) error {
	r.statuses = append(r.statuses, run.Status)
	return r.updateErr
}

type fakeReportRepo struct {
	saved   *types.Report
	saveErr error
}

func (r *fakeReportRepo) SaveReport(ctx context.Context, report *types.Report) error {
	r.saved = report
	return r.saveErr
}

func (r *fakeReportRepo) GetReport(ctx context.Context, documentID string) (*types.Report, error) {
	if r.saved == nil {
		return nil, errors.New("not found")
	}
	return r.saved, nil
}

func newTestRunContext() *types.RunContext {
	return &types.RunContext{
		Run: &types.ProcessingRun{
			DocumentID: "doc-1",
			FileName:   "rfi.pdf",
			StorageURL: "uploads/rfi.pdf",
			Status:     types.RUN_STATUS_UPLOADED,
		},
	}
}

func newTestPipeline(gen Generator, kb database.KnowledgeBase, runRepo *fakeRunRepo, reportRepo *fakeReportRepo) *PipelineService {
	chunker := NewChunkerService(types.DocumentServiceConfig{MaxChunkTokens: 50})
	extractor := NewExtractorService(gen)
	resolver := NewResolverService(kb)
	if runRepo == nil && reportRepo == nil {
		return NewPipelineService(chunker, extractor, resolver, nil, nil)
	}
	return NewPipelineService(chunker, extractor, resolver, runRepo, reportRepo)
}

func TestProcessTextDocumentWithQuestions(t *testing.T) {
	gen := &fakeGenerator{
		output: "Here are the questions:\n\n1. What is your revenue?\n\n2. How many staff?",
	}
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			return &database.RetrievalResult{
				OutputText: "1. The answer.",
				Citations:  []database.Citation{{Source: "kb.pdf"}},
			}, nil
		},
	}
	runRepo := &fakeRunRepo{}
	reportRepo := &fakeReportRepo{}
	pipeline := newTestPipeline(gen, kb, runRepo, reportRepo)

	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, tokenText(120), nil)
	require.NoError(t, err)

	// 120 tokens at 50 per chunk makes 3 chunks, 2 questions each.
	assert.Equal(t, types.RUN_STATUS_COMPLETED, runCtx.Run.Status)
	assert.Equal(t, 3, runCtx.ChunksProcessed)
	assert.Equal(t, 3, runCtx.TotalChunks)
	assert.Len(t, runCtx.Records, 6)

	require.NotNil(t, runCtx.Run.Metadata)
	assert.Equal(t, 3, runCtx.Run.Metadata.ChunksProcessed)
	assert.Equal(t, 3, runCtx.Run.Metadata.TotalChunks)
	assert.Equal(t, 6, runCtx.Run.Metadata.AnswersFound)
	assert.Empty(t, runCtx.Run.Metadata.ErrorMessage)

	assert.Equal(t, []string{types.RUN_STATUS_PROCESSING, types.RUN_STATUS_COMPLETED}, runRepo.statuses)

	require.NotNil(t, reportRepo.saved)
	assert.Equal(t, "doc-1", reportRepo.saved.DocumentID)
	assert.Len(t, reportRepo.saved.Records, 6)
}

func TestProcessTextDocumentWithoutQuestions(t *testing.T) {
	gen := &fakeGenerator{
		output: "Unfortunately, the document does not contain any questions.",
	}
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			t.Error("resolver must not be called when no questions were extracted")
			return nil, nil
		},
	}
	pipeline := newTestPipeline(gen, kb, nil, nil)

	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, tokenText(40), nil)
	require.NoError(t, err)

	assert.Equal(t, types.RUN_STATUS_COMPLETED, runCtx.Run.Status)
	assert.Empty(t, runCtx.Records)
	assert.Equal(t, 0, runCtx.Run.Metadata.AnswersFound)
}

func TestProcessTextEmptyDocument(t *testing.T) {
	gen := &fakeGenerator{output: "irrelevant"}
	runRepo := &fakeRunRepo{}
	pipeline := newTestPipeline(gen, &fakeKnowledgeBase{}, runRepo, &fakeReportRepo{})

	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, "   ", nil)
	assert.ErrorIs(t, err, types.ErrEmptyDocument)

	assert.Equal(t, types.RUN_STATUS_ERROR, runCtx.Run.Status)
	require.NotNil(t, runCtx.Run.Metadata)
	assert.NotEmpty(t, runCtx.Run.Metadata.ErrorMessage)
	assert.Equal(t, []string{types.RUN_STATUS_PROCESSING, types.RUN_STATUS_ERROR}, runRepo.statuses)
}

func TestProcessTextExtractionFailureSkipsChunk(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	pipeline := newTestPipeline(gen, &fakeKnowledgeBase{}, nil, nil)

	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, tokenText(120), nil)
	require.NoError(t, err)

	// Every chunk failed extraction but the run still completes.
	assert.Equal(t, types.RUN_STATUS_COMPLETED, runCtx.Run.Status)
	assert.Equal(t, 3, runCtx.ChunksProcessed)
	assert.Empty(t, runCtx.Records)
}

func TestProcessTextTerminalRunRejected(t *testing.T) {
	pipeline := newTestPipeline(&fakeGenerator{}, &fakeKnowledgeBase{}, nil, nil)

	for _, status := range []string{types.RUN_STATUS_COMPLETED, types.RUN_STATUS_ERROR} {
		runCtx := newTestRunContext()
		runCtx.Run.Status = status
		err := pipeline.ProcessText(context.Background(), runCtx, tokenText(10), nil)
		assert.ErrorIs(t, err, types.ErrRunTerminal)
		assert.Equal(t, status, runCtx.Run.Status)
	}
}

func TestProcessTextProgressReporting(t *testing.T) {
	gen := &fakeGenerator{
		output: "Unfortunately, no questions here.",
	}
	pipeline := newTestPipeline(gen, &fakeKnowledgeBase{}, nil, nil)

	var updates []types.ProcessingDocumentStatus
	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, tokenText(120), func(status types.ProcessingDocumentStatus) {
		updates = append(updates, status)
	})
	require.NoError(t, err)

	require.Len(t, updates, 3)
	for i, update := range updates {
		assert.Equal(t, "doc-1", update.DocumentID)
		assert.Equal(t, i+1, update.ProcessedChunks)
		assert.Equal(t, 3, update.TotalChunks)
	}
	assert.InDelta(t, 1.0, updates[2].Progress, 0.001)
}

func TestProcessFileMarksProcessingBeforeExtraction(t *testing.T) {
	runRepo := &fakeRunRepo{}
	pipeline := newTestPipeline(&fakeGenerator{}, &fakeKnowledgeBase{}, runRepo, &fakeReportRepo{})

	runCtx := newTestRunContext()
	err := pipeline.ProcessFile(context.Background(), runCtx, filepath.Join(t.TempDir(), "missing.pdf"), nil)
	require.Error(t, err)

	// Extraction failed, so the run went PROCESSING -> ERROR, never
	// straight from UPLOADED to a terminal status.
	assert.Equal(t, types.RUN_STATUS_ERROR, runCtx.Run.Status)
	assert.Equal(t, []string{types.RUN_STATUS_PROCESSING, types.RUN_STATUS_ERROR}, runRepo.statuses)
	require.NotNil(t, runCtx.Run.Metadata)
	assert.NotEmpty(t, runCtx.Run.Metadata.ErrorMessage)
}

func TestProcessTextPersistenceFailureDoesNotAbort(t *testing.T) {
	gen := &fakeGenerator{
		output: "Here are the questions:\n\n1. What is your revenue?",
	}
	kb := &fakeKnowledgeBase{
		retrieve: func(query string) (*database.RetrievalResult, error) {
			return &database.RetrievalResult{OutputText: "1. The answer."}, nil
		},
	}
	runRepo := &fakeRunRepo{updateErr: errors.New("mongo down")}
	reportRepo := &fakeReportRepo{saveErr: errors.New("mongo down")}
	pipeline := newTestPipeline(gen, kb, runRepo, reportRepo)

	runCtx := newTestRunContext()
	err := pipeline.ProcessText(context.Background(), runCtx, tokenText(40), nil)
	require.NoError(t, err)

	assert.Equal(t, types.RUN_STATUS_COMPLETED, runCtx.Run.Status)
	assert.Len(t, runCtx.Records, 1)
}
