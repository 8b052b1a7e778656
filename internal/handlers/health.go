package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"donorflow/internal/automation"
	"donorflow/pkg/campaigns"
	"donorflow/pkg/socialcast"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db        *gorm.DB
	engine    *automation.Engine
	campaigns campaigns.Sender
	social    socialcast.Publisher
	logger    *logrus.Logger
}

func NewHealthHandler(db *gorm.DB, engine *automation.Engine, mail campaigns.Sender, social socialcast.Publisher) *HealthHandler {
	return &HealthHandler{
		db:        db,
		engine:    engine,
		campaigns: mail,
		social:    social,
		logger:    logrus.StandardLogger(),
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
}

// ServiceInfo 服务信息
type ServiceInfo struct {
	Status  string      `json:"status"`
	Latency string      `json:"latency,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	Uptime    time.Duration `json:"uptime"`
	Version   string        `json:"version"`
	GoVersion string        `json:"go_version"`
}

var startTime = time.Now()

// Health reports overall status. Provider outages degrade but never fail the
// endpoint: affected actions fail individually and the engine keeps running.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
		System: SystemInfo{
			Uptime:    time.Since(startTime),
			Version:   "1.0.0",
			GoVersion: runtime.Version(),
		},
	}

	allHealthy := true

	h.checkDatabase(ctx, &response, &allHealthy)
	h.checkProvider(ctx, &response, "campaigns", h.providerCheck(h.campaigns))
	h.checkProvider(ctx, &response, "socialcast", h.providerCheck(h.social))

	if h.engine != nil {
		response.Services["automation"] = ServiceInfo{
			Status:  "healthy",
			Details: h.engine.Statistics(""),
		}
	}

	if !allHealthy {
		response.Status = "unhealthy"
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// Ready 就绪检查端点
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ready := true
	checks := make(map[string]string)

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "not_ready"
			ready = false
		} else {
			checks["database"] = "ready"
		}
	}

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now(),
		"services":  checks,
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context, response *HealthResponse, allHealthy *bool) {
	if h.db == nil {
		response.Services["database"] = ServiceInfo{Status: "disabled"}
		return
	}

	start := time.Now()
	serviceInfo := ServiceInfo{Status: "healthy"}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		serviceInfo.Status = "unhealthy"
		serviceInfo.Error = err.Error()
		*allHealthy = false
	}
	serviceInfo.Latency = time.Since(start).String()

	response.Services["database"] = serviceInfo
}

func (h *HealthHandler) providerCheck(p interface {
	HealthCheck(ctx context.Context) error
}) func(context.Context) error {
	if p == nil {
		return nil
	}
	return p.HealthCheck
}

// checkProvider probes one outbound provider. A failing provider is reported
// degraded without flipping the overall status.
func (h *HealthHandler) checkProvider(ctx context.Context, response *HealthResponse, name string, check func(context.Context) error) {
	if check == nil {
		response.Services[name] = ServiceInfo{Status: "disabled"}
		return
	}

	start := time.Now()
	if err := check(ctx); err != nil {
		response.Services[name] = ServiceInfo{
			Status:  "degraded",
			Latency: time.Since(start).String(),
			Error:   err.Error(),
		}
		h.logger.Warnf("%s provider is unhealthy: %v", name, err)
		return
	}
	response.Services[name] = ServiceInfo{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}
