package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"donorflow/internal/automation"
	"donorflow/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsHandler exposes engine and HTTP counters in Prometheus text format.
type MetricsHandler struct {
	engine *automation.Engine
}

func NewMetricsHandler(engine *automation.Engine) *MetricsHandler {
	return &MetricsHandler{engine: engine}
}

// GetMetrics 输出指标
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var b strings.Builder

	events, executions, byStatus := metrics.AutomationSnapshot()
	fmt.Fprintf(&b, "donorflow_events_received_total %d\n", events)
	fmt.Fprintf(&b, "donorflow_executions_total %d\n", executions)
	for _, status := range sortedKeys(byStatus) {
		fmt.Fprintf(&b, "donorflow_executions_status_total{status=%q} %d\n", status, byStatus[status])
	}

	if h.engine != nil {
		stats := h.engine.Statistics("")
		fmt.Fprintf(&b, "donorflow_rules_total %d\n", stats.TotalRules)
		fmt.Fprintf(&b, "donorflow_rules_active %d\n", stats.ActiveRules)
		fmt.Fprintf(&b, "donorflow_execution_avg_ms %g\n", stats.AverageExecutionMS)
	}

	rlTotal, rlBy := metrics.RateLimitSnapshot()
	fmt.Fprintf(&b, "donorflow_ratelimit_drops_total %d\n", rlTotal)
	for _, prefix := range sortedKeys(rlBy) {
		fmt.Fprintf(&b, "donorflow_ratelimit_drops_total{prefix=%q} %d\n", prefix, rlBy[prefix])
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(b.String()))
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
