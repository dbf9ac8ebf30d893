package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/rfi-processor-be/middleware"
	"github.com/tieubaoca/rfi-processor-be/repository"
	"github.com/tieubaoca/rfi-processor-be/service"
	"github.com/tieubaoca/rfi-processor-be/types"
)

type RunHandler struct {
	runRepo       repository.RunRepo
	reportRepo    repository.ReportRepo
	exportService *service.ExportService
}

func NewRunHandler(
	runRepo repository.RunRepo,
	reportRepo repository.ReportRepo,
	exportService *service.ExportService,
) *RunHandler {
	return &RunHandler{
		runRepo:       runRepo,
		reportRepo:    reportRepo,
		exportService: exportService,
	}
}

// historyFilter returns the username filter for run listings. Admins see
// every run, regular users only their own.
func historyFilter(c *gin.Context) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return "", false
	}
	if claims.Role == types.USER_ROLE_ADMIN {
		return "", true
	}
	return claims.Username, true
}

// HandleListRuns returns the run history, newest first.
func (h *RunHandler) HandleListRuns(c *gin.Context) {
	username, ok := historyFilter(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.DataResponse{
			Status:  false,
			Message: "unauthorized",
		})
		return
	}

	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset"), 10, 64)

	runs, err := h.runRepo.ListRuns(c, username, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   runs,
	})
}

// loadRunForCaller fetches the run and enforces ownership; non-admins can
// only see their own runs. A nil return means the response was already
// written.
func (h *RunHandler) loadRunForCaller(c *gin.Context, documentID string) *types.ProcessingRun {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.DataResponse{
			Status:  false,
			Message: "unauthorized",
		})
		return nil
	}
	run, err := h.runRepo.GetRun(c, documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "run not found",
		})
		return nil
	}
	if claims.Role != types.USER_ROLE_ADMIN && run.Username != claims.Username {
		c.JSON(http.StatusForbidden, types.DataResponse{
			Status:  false,
			Message: "forbidden",
		})
		return nil
	}
	return run
}

// HandleGetRun returns one run together with its report when the run has
// completed.
func (h *RunHandler) HandleGetRun(c *gin.Context) {
	run := h.loadRunForCaller(c, c.Param("id"))
	if run == nil {
		return
	}

	resp := types.RunReportResponse{Run: run}
	if run.Status == types.RUN_STATUS_COMPLETED {
		if report, err := h.reportRepo.GetReport(c, run.DocumentID); err == nil {
			resp.Report = report
		}
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   resp,
	})
}

// HandleDownloadReport streams the run's report as a Word document.
func (h *RunHandler) HandleDownloadReport(c *gin.Context) {
	run := h.loadRunForCaller(c, c.Param("id"))
	if run == nil {
		return
	}

	report, err := h.reportRepo.GetReport(c, run.DocumentID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "report not found",
		})
		return
	}

	// Render fully before committing headers; a half-written attachment
	// must not end in a JSON error body.
	var buf bytes.Buffer
	if err := h.exportService.WriteReportDocument(report.Records, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.FileName+"_analysis.docx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", buf.Bytes())
}

// HandleDownloadHistory streams the caller's run history as CSV.
func (h *RunHandler) HandleDownloadHistory(c *gin.Context) {
	username, ok := historyFilter(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.DataResponse{
			Status:  false,
			Message: "unauthorized",
		})
		return
	}

	runs, err := h.runRepo.ListRuns(c, username, 0, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.WriteHistoryCSV(runs, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\"processing_history.csv\"")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
