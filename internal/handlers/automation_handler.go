package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"donorflow/internal/automation"
	"donorflow/internal/metrics"

	"github.com/gin-gonic/gin"
)

// AutomationHandler exposes rule management, event ingestion, and execution
// analytics over REST.
type AutomationHandler struct {
	engine *automation.Engine
}

func NewAutomationHandler(engine *automation.Engine) *AutomationHandler {
	return &AutomationHandler{engine: engine}
}

// ListRules 获取规则列表
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules := h.engine.Rules(c.Query("scope_id"))
	c.JSON(http.StatusOK, rules)
}

// CreateRule registers a new rule. The rule becomes live before the response
// is written.
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var rule automation.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	created, err := h.engine.Register(&rule)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create rule", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetRule 获取单条规则
func (h *AutomationHandler) GetRule(c *gin.Context) {
	rule := h.engine.Get(c.Param("id"))
	if rule == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Rule not found"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule applies a partial update; omitted fields keep their values.
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	var req automation.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	updated, err := h.engine.Update(c.Param("id"), &req)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update rule", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteRule 删除规则
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	h.engine.Unregister(c.Param("id"))
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// EventRequest is one ingested runtime event.
type EventRequest struct {
	Type    string                 `json:"type" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

// IngestEvent accepts an external event and hands it to the engine. Always
// 202: evaluation and execution happen asynchronously.
func (h *AutomationHandler) IngestEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	metrics.IncEventReceived()
	h.engine.TriggerEvent(c.Request.Context(), req.Type, req.Payload)

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "accepted"})
}

// ListExecutions returns a rule's execution history, newest first.
func (h *AutomationHandler) ListExecutions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	executions := h.engine.History(c.Param("id"), limit)
	c.JSON(http.StatusOK, executions)
}

// ListAllExecutions returns recent executions across all rules.
func (h *AutomationHandler) ListAllExecutions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	executions := h.engine.History("", limit)
	c.JSON(http.StatusOK, executions)
}

// Stats 获取自动化统计
func (h *AutomationHandler) Stats(c *gin.Context) {
	stats := h.engine.Statistics(c.Query("scope_id"))
	c.JSON(http.StatusOK, stats)
}

// RegisterAutomationRoutes 注册路由
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	auto := r.Group("/automations")
	{
		auto.GET("", handler.ListRules)
		auto.POST("", handler.CreateRule)
		auto.GET("/stats", handler.Stats)
		auto.GET("/executions", handler.ListAllExecutions)
		auto.POST("/events", handler.IngestEvent)
		auto.GET("/:id", handler.GetRule)
		auto.PUT("/:id", handler.UpdateRule)
		auto.DELETE("/:id", handler.DeleteRule)
		auto.GET("/:id/executions", handler.ListExecutions)
	}
}
