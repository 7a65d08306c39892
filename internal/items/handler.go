package items

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trialops/internal/logger"
	"trialops/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
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
		actionItems := v1.Group("/action-items")
		{
			actionItems.GET("", h.List)
			actionItems.POST("", h.Create)
			actionItems.GET("/:id", h.Get)
			actionItems.PUT("/:id", h.Update)
			actionItems.PATCH("/:id/status", h.Transition)
			actionItems.DELETE("/:id", h.Delete)
			actionItems.GET("/:id/updates", h.ListUpdates)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// List godoc
// @Summary      List action items
// @Description  List action items with filters and pagination, ordered severity-first then by resolution deadline
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        study_id     query     string  false  "Filter by study"
// @Param        site_id      query     string  false  "Filter by site"
// @Param        status       query     string  false  "Filter by workflow status"
// @Param        category     query     string  false  "Filter by category"
// @Param        severity     query     string  false  "Filter by severity"
// @Param        assigned_to  query     string  false  "Filter by assignee"
// @Param        overdue      query     bool    false  "Only items past their resolution deadline"
// @Param        open_only    query     bool    false  "Only open items"
// @Param        page         query     int     false  "Page number" default(1)
// @Param        page_size    query     int     false  "Items per page (1-100)" default(20)
// @Success      200          {object}  ItemList
// @Failure      500          {object}  errors.ErrorResponse
// @Router       /action-items [get]
func (h *Handler) List(c *gin.Context) {
	page := parsePositiveInt(c.Query("page"), 1)
	pageSize := parsePositiveInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := Filter{
		StudyID:     c.Query("study_id"),
		SiteID:      c.Query("site_id"),
		Status:      c.Query("status"),
		Category:    c.Query("category"),
		Severity:    c.Query("severity"),
		AssignedTo:  c.Query("assigned_to"),
		OverdueOnly: c.Query("overdue") == "true",
		OpenOnly:    c.Query("open_only") == "true",
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Create godoc
// @Summary      Create an action item
// @Description  Create an action item. Both SLA deadlines are computed from the active rule and stamped permanently.
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        item  body       CreateActionItemRequest  true  "Action item data"
// @Success      201   {object}   ActionItem
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      422   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /action-items [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Get godoc
// @Summary      Get an action item by ID
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Action item ID"
// @Success      200  {object}   ActionItem
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /action-items/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Update godoc
// @Summary      Update an action item
// @Description  Update title, description or assignee. Every field change lands in the audit trail.
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "Action item ID"
// @Param        item  body       UpdateActionItemRequest  true  "Updated fields"
// @Success      200   {object}   ActionItem
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /action-items/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Transition godoc
// @Summary      Move an action item through the workflow
// @Description  Apply a workflow transition. done stamps resolved_at; verified is terminal.
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        id      path      string             true  "Action item ID"
// @Param        status  body       TransitionRequest  true  "Target status with optional comment"
// @Success      200     {object}   ActionItem
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /action-items/{id}/status [patch]
func (h *Handler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	item, err := h.service.Transition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Delete godoc
// @Summary      Delete an action item
// @Description  Delete an action item that is still in status new
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Action item ID"
// @Success      204  "No Content"
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /action-items/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListUpdates godoc
// @Summary      Get the audit trail of an action item
// @Tags         action-items
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Action item ID"
// @Success      200  {array}   ItemUpdate
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /action-items/{id}/updates [get]
func (h *Handler) ListUpdates(c *gin.Context) {
	updates, err := h.service.ListUpdates(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, updates)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
