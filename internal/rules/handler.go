package rules

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trialops/internal/constants"
	"trialops/internal/logger"
	"trialops/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		slaRules := v1.Group("/rules/sla")
		{
			slaRules.GET("", h.ListSLARules)
			slaRules.POST("", h.CreateSLARule)
			slaRules.GET("/:id", h.GetSLARule)
			slaRules.PUT("/:id", h.UpdateSLARule)
			slaRules.DELETE("/:id", h.DeleteSLARule)
			slaRules.GET("/:id/versions", h.GetRuleVersions)
			slaRules.GET("/:id/audit", h.GetRuleAuditLogs)
		}

		suppression := v1.Group("/rules/suppression")
		{
			suppression.GET("", h.ListSuppressionRules)
			suppression.POST("", h.CreateSuppressionRule)
			suppression.GET("/:id", h.GetSuppressionRule)
			suppression.PUT("/:id", h.UpdateSuppressionRule)
			suppression.DELETE("/:id", h.DeleteSuppressionRule)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListSLARules godoc
// @Summary      List all SLA rules
// @Description  Get a list of all SLA rules, including inactive ones
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}    SLARule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/sla [get]
func (h *Handler) ListSLARules(c *gin.Context) {
	rules, err := h.Service.ListSLARules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateSLARule godoc
// @Summary      Create a new SLA rule
// @Description  Create an SLA rule. Omit category for a severity-wide fallback rule.
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        rule  body       CreateSLARuleRequest  true  "SLA rule data"
// @Success      201   {object}   SLARule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/sla [post]
func (h *Handler) CreateSLARule(c *gin.Context) {
	var req CreateSLARuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateSLARule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetSLARule godoc
// @Summary      Get an SLA rule by ID
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}   SLARule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/sla/{id} [get]
func (h *Handler) GetSLARule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.Service.GetSLARule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateSLARule godoc
// @Summary      Update an SLA rule
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Rule ID"
// @Param        rule  body       UpdateSLARuleRequest  true  "Updated rule data"
// @Success      200   {object}   SLARule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/sla/{id} [put]
func (h *Handler) UpdateSLARule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSLARuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateSLARule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteSLARule godoc
// @Summary      Delete an SLA rule
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/sla/{id} [delete]
func (h *Handler) DeleteSLARule(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteSLARule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRuleVersions godoc
// @Summary      Get rule version history
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {array}   RuleVersion
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/sla/{id}/versions [get]
func (h *Handler) GetRuleVersions(c *gin.Context) {
	id := c.Param("id")
	versions, err := h.Service.GetRuleVersions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// GetRuleAuditLogs godoc
// @Summary      Get audit logs for a rule
// @Tags         sla-rules
// @Accept       json
// @Produce      json
// @Param        id     path      string  true   "Rule ID"
// @Param        limit  query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200    {array}   AuditLog
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /rules/sla/{id}/audit [get]
func (h *Handler) GetRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), &id, "sla", limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Get audit logs with optional filtering by rule ID and rule type
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        rule_id    query     string  false  "Filter by rule ID"
// @Param        rule_type  query     string  false  "Filter by rule type (sla, suppression)"
// @Param        limit      query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200        {array}   AuditLog
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	ruleID := c.Query("rule_id")
	ruleType := c.Query("rule_type")
	limit := parseLimit(c.Query("limit"))

	var ruleIDPtr *string
	if ruleID != "" {
		ruleIDPtr = &ruleID
	}

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), ruleIDPtr, ruleType, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListSuppressionRules godoc
// @Summary      List all suppression rules
// @Tags         suppression-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}    SuppressionRule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/suppression [get]
func (h *Handler) ListSuppressionRules(c *gin.Context) {
	rules, err := h.Service.ListSuppressionRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateSuppressionRule godoc
// @Summary      Create a new suppression rule
// @Tags         suppression-rules
// @Accept       json
// @Produce      json
// @Param        rule  body       CreateSuppressionRuleRequest  true  "Suppression rule data"
// @Success      201   {object}   SuppressionRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/suppression [post]
func (h *Handler) CreateSuppressionRule(c *gin.Context) {
	var req CreateSuppressionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateSuppressionRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetSuppressionRule godoc
// @Summary      Get a suppression rule by ID
// @Tags         suppression-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}   SuppressionRule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/suppression/{id} [get]
func (h *Handler) GetSuppressionRule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.Service.GetSuppressionRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateSuppressionRule godoc
// @Summary      Update a suppression rule
// @Tags         suppression-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                        true  "Rule ID"
// @Param        rule  body       UpdateSuppressionRuleRequest  true  "Updated rule data"
// @Success      200   {object}   SuppressionRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/suppression/{id} [put]
func (h *Handler) UpdateSuppressionRule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSuppressionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateSuppressionRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteSuppressionRule godoc
// @Summary      Delete a suppression rule
// @Tags         suppression-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/suppression/{id} [delete]
func (h *Handler) DeleteSuppressionRule(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteSuppressionRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
