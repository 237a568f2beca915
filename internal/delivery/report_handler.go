package delivery

import (
	"net/http"
	"strconv"
	"time"

	"fulfillment_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ReportHandler struct {
	useCase usecase.ReportUseCase
	log     *logrus.Logger
}

func NewReportHandler(uc usecase.ReportUseCase, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *ReportHandler) RegisterRoutes(router gin.IRouter) {
	reports := router.Group("/reports")
	{
		reports.GET("", h.GetReportsByDate)
		reports.GET("/all", h.ListReports)
		reports.GET("/count", h.CountReports)
		reports.POST("/generate", h.GenerateReport)
	}
}

func parseDateParam(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		ErrorResponse(c, http.StatusBadRequest, "Query parameter 'date' is required (format YYYY-MM-DD)")
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (h *ReportHandler) GetReportsByDate(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	reports, err := h.useCase.GetReportsByDate(c.Request.Context(), date)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to get reports for %s: %v", date.Format("2006-01-02"), err)
		ErrorResponse(c, statusCode, "Failed to retrieve reports: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Reports retrieved successfully", reports)
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	reports, err := h.useCase.ListReports(c.Request.Context(), count, page)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to list reports: %v", err)
		ErrorResponse(c, statusCode, "Failed to retrieve reports: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Reports retrieved successfully", reports)
}

func (h *ReportHandler) CountReports(c *gin.Context) {
	total, err := h.useCase.CountReports(c.Request.Context())
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Handler: Failed to count reports: %v", err)
		ErrorResponse(c, statusCode, "Failed to count reports: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Report count retrieved successfully", gin.H{"total": total})
}

// GenerateReport triggers an on-demand aggregation for an explicit date.
// The run happens in the background; the task id correlates the response
// with the run's log entries.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	date, ok := parseDateParam(c)
	if !ok {
		return
	}

	taskID := h.useCase.EnqueueAggregation(date)
	h.log.Infof("Handler: Report generation task %s accepted for %s", taskID, date.Format("2006-01-02"))

	SuccessResponse(c, http.StatusAccepted, "Report generation started", gin.H{
		"task_id": taskID,
		"date":    date.Format("2006-01-02"),
	})
}
