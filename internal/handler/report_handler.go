package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/service"
	"github.com/TEswarreddy/shopez-sub000/pkg/middleware"
)

type ReportHandler struct {
	reportService *service.ReportService
	logger        *zap.Logger
}

func NewReportHandler(reportService *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// parseRange reads optional from/to query params, accepting RFC3339 or plain
// dates. Missing bounds default to the last 30 days.
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func scopeFrom(c *gin.Context) service.Scope {
	return service.Scope{VendorID: c.Query("vendor_id")}
}

func (h *ReportHandler) RevenueDashboard(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range", "details": err.Error()})
		return
	}

	report, err := h.reportService.RevenueDashboard(c.Request.Context(), scopeFrom(c), from, to, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) RevenueTrend(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range", "details": err.Error()})
		return
	}

	granularity := service.Granularity(c.DefaultQuery("granularity", string(service.GranularityDay)))
	buckets, err := h.reportService.RevenueTrend(c.Request.Context(), scopeFrom(c), from, to, granularity, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (h *ReportHandler) TopEntities(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range", "details": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	dimension := service.Dimension(c.DefaultQuery("dimension", string(service.DimensionVendor)))

	ranked, err := h.reportService.TopEntities(c.Request.Context(), dimension, from, to, limit, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (h *ReportHandler) ReconciliationQueue(c *gin.Context) {
	reconciled := c.DefaultQuery("reconciled", "false") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	rows, err := h.reportService.ReconciliationQueue(c.Request.Context(), reconciled, page, pageSize, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
