package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/middleware"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

type analyticsService interface {
	Dashboard(ctx context.Context, req dto.DashboardRequest) (*dto.DashboardResponse, bool, error)
	Export(ctx context.Context, format string, req dto.DashboardRequest) (*service.ExportFile, error)
}

// AnalyticsHandler exposes the officer dashboard.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// dashboardRequest reads the window from the query string, then lets a JSON
// body override it.
func dashboardRequest(c *gin.Context) (dto.DashboardRequest, error) {
	var req dto.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dashboard filter")
	}
	// chunked bodies report ContentLength -1, so test the body itself
	if c.Request.Body != nil && c.Request.Body != http.NoBody && c.ContentType() == binding.MIMEJSON {
		var body dto.DashboardRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return req, nil
			}
			return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dashboard filter")
		}
		if body.StartDate != nil {
			req.StartDate = body.StartDate
		}
		if body.EndDate != nil {
			req.EndDate = body.EndDate
		}
		if body.IncludeArchived != nil {
			req.IncludeArchived = body.IncludeArchived
		}
	}
	return req, nil
}

// Dashboard godoc
// @Summary Analytics dashboard
// @Description Membership, payment, event and clearance figures for a reporting window
// @Tags Analytics
// @Produce json
// @Param start_date query string false "RFC3339 or YYYY-MM-DD"
// @Param end_date query string false "RFC3339 or YYYY-MM-DD"
// @Param include_archived query bool false "Count archived rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	req, err := dashboardRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.analytics.Dashboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetProcessingTime(c, time.Since(start))
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the dashboard as CSV or PDF
// @Tags Analytics
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param start_date query string false "RFC3339 or YYYY-MM-DD"
// @Param end_date query string false "RFC3339 or YYYY-MM-DD"
// @Success 200 {file} file
// @Router /analytics/dashboard/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	req, err := dashboardRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.analytics.Export(c.Request.Context(), c.Query("format"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
