package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/rfi-processor-be/middleware"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
	"github.com/tieubaoca/rfi-processor-be/utils"
)

type stubRunRepo struct {
	runs map[string]*types.ProcessingRun
}

func (r *stubRunRepo) CreateRun(ctx context.Context, run *types.ProcessingRun) error { return nil }

func (r *stubRunRepo) GetRun(ctx context.Context, documentID string) (*types.ProcessingRun, error) {
	run, ok := r.runs[documentID]
	if !ok {
		return nil, errors.New("mongo: no documents in result")
	}
	return run, nil
}

func (r *stubRunRepo) ListRuns(ctx context.Context, username string, limit, offset int64) ([]*types.ProcessingRun, error) {
	var runs []*types.ProcessingRun
	for _, run := range r.runs {
		if username == "" || run.Username == username {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (r *stubRunRepo) UpdateRun(ctx context.Context, run *types.ProcessingRun) error { return nil }

type stubReportRepo struct {
	reports map[string]*types.Report
}

func (r *stubReportRepo) SaveReport(ctx context.Context, report *types.Report) error { return nil }

func (r *stubReportRepo) GetReport(ctx context.Context, documentID string) (*types.Report, error) {
	report, ok := r.reports[documentID]
	if !ok {
		return nil, errors.New("mongo: no documents in result")
	}
	return report, nil
}

func withClaims(claims *utils.UserClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserClaimsKey, claims)
		c.Next()
	}
}

func runRouter(h *RunHandler, claims *utils.UserClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withClaims(claims))
	router.GET("/runs/history", h.HandleDownloadHistory)
	router.GET("/runs/:id", h.HandleGetRun)
	router.GET("/runs/:id/report", h.HandleDownloadReport)
	return router
}

func testRunHandler() *RunHandler {
	runRepo := &stubRunRepo{
		runs: map[string]*types.ProcessingRun{
			"doc-1": {
				DocumentID: "doc-1",
				FileName:   "rfi.pdf",
				Status:     types.RUN_STATUS_COMPLETED,
				Timestamp:  "2026-08-20T10:30:00Z",
				Username:   "alice",
				Metadata:   &types.RunMetadata{ChunksProcessed: 2, TotalChunks: 2, AnswersFound: 1},
			},
		},
	}
	reportRepo := &stubReportRepo{
		reports: map[string]*types.Report{
			"doc-1": {
				DocumentID: "doc-1",
				Records: []types.AnswerRecord{
					{Question: "1. What is your revenue?", Answer: "Answer: 1. 10M.", Citation: "kb.pdf"},
				},
			},
		},
	}
	return NewRunHandler(runRepo, reportRepo, service.NewExportService())
}

func TestHandleDownloadReportStreamsDocx(t *testing.T) {
	router := runRouter(testRunHandler(), &utils.UserClaims{Username: "alice", Role: types.USER_ROLE_USER})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/doc-1/report", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rfi.pdf_analysis.docx")
	// The body is the attachment alone, a zip archive from the first byte.
	require.GreaterOrEqual(t, w.Body.Len(), 2)
	assert.Equal(t, []byte{'P', 'K'}, w.Body.Bytes()[:2])
}

func TestHandleDownloadReportEnforcesOwnership(t *testing.T) {
	router := runRouter(testRunHandler(), &utils.UserClaims{Username: "bob", Role: types.USER_ROLE_USER})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/doc-1/report", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleDownloadHistoryStreamsCSV(t *testing.T) {
	router := runRouter(testRunHandler(), &utils.UserClaims{Username: "admin", Role: types.USER_ROLE_ADMIN})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"File Name", "Status", "Timestamp", "Processing Info", "User"}, rows[0])
	assert.Equal(t, "rfi.pdf", rows[1][0])
}

func TestHandleGetRunReturnsReport(t *testing.T) {
	router := runRouter(testRunHandler(), &utils.UserClaims{Username: "alice", Role: types.USER_ROLE_USER})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/doc-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1. What is your revenue?")
}
