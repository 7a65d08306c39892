package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trialops/internal/logger"
	"trialops/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/kpis", h.KPIs)
			dashboard.GET("/pareto", h.Pareto)
			dashboard.GET("/burndown", h.Burndown)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// KPIs godoc
// @Summary      Headline SLA KPIs
// @Description  Overdue count, aging P90, compliance percentage and open-item breakdowns at the current instant
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        study_id  query     string  false  "Restrict to one study"
// @Success      200       {object}  KPIResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /dashboard/kpis [get]
func (h *Handler) KPIs(c *gin.Context) {
	response, err := h.service.KPIs(c.Request.Context(), c.Query("study_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Pareto godoc
// @Summary      Category Pareto breakdown
// @Description  Top categories by item count with cumulative percentages
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        study_id  query     string  false  "Restrict to one study"
// @Param        top_n     query     int     false  "Number of categories (3-10)" default(5)
// @Success      200       {object}  ParetoResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /dashboard/pareto [get]
func (h *Handler) Pareto(c *gin.Context) {
	topN := parseQueryInt(c.Query("top_n"))

	response, err := h.service.Pareto(c.Request.Context(), c.Query("study_id"), topN)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Burndown godoc
// @Summary      Daily burndown series
// @Description  Open, closed and cumulative-closed counts per day over the trailing window
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        study_id  query     string  false  "Restrict to one study"
// @Param        days      query     int     false  "Window length in days (7-90)" default(30)
// @Success      200       {object}  BurndownResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /dashboard/burndown [get]
func (h *Handler) Burndown(c *gin.Context) {
	days := parseQueryInt(c.Query("days"))

	response, err := h.service.Burndown(c.Request.Context(), c.Query("study_id"), days)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// parseQueryInt returns 0 for absent or unparsable values; the service swaps
// in the endpoint default.
func parseQueryInt(raw string) int {
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
