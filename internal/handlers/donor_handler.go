package handlers

import (
	"net/http"
	"strings"

	"donorflow/internal/services"

	"github.com/gin-gonic/gin"
)

// DonorHandler exposes donor profiles, gift intake, and segments over REST.
type DonorHandler struct {
	donors   *services.DonorService
	segments *services.SegmentService
}

func NewDonorHandler(donors *services.DonorService, segments *services.SegmentService) *DonorHandler {
	return &DonorHandler{donors: donors, segments: segments}
}

// CreateDonor 创建捐赠人
func (h *DonorHandler) CreateDonor(c *gin.Context) {
	var req services.DonorCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	donor, err := h.donors.CreateDonor(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "already exists") {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create donor", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, donor)
}

// GetDonor 获取捐赠人
func (h *DonorHandler) GetDonor(c *gin.Context) {
	donor, err := h.donors.GetDonorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Donor not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, donor)
}

// UpdateDonor 更新捐赠人
func (h *DonorHandler) UpdateDonor(c *gin.Context) {
	var req services.DonorUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	donor, err := h.donors.UpdateDonor(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update donor", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, donor)
}

// DeleteDonor 删除捐赠人
func (h *DonorHandler) DeleteDonor(c *gin.Context) {
	if err := h.donors.DeleteDonor(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete donor", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListDonors 获取捐赠人列表
func (h *DonorHandler) ListDonors(c *gin.Context) {
	var req services.DonorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	donors, total, err := h.donors.ListDonors(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list donors", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     donors,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    pageCount(total, req.PageSize),
	})
}

// RecordDonation records a gift against the donor and emits donation_made.
func (h *DonorHandler) RecordDonation(c *gin.Context) {
	var req services.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	donation, err := h.donors.RecordDonation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to record donation", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, donation)
}

// EngagementRequest sets a donor's engagement score.
type EngagementRequest struct {
	Score int `json:"score" binding:"min=0,max=100"`
}

// UpdateEngagement 更新互动评分
func (h *DonorHandler) UpdateEngagement(c *gin.Context) {
	var req EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.donors.UpdateEngagementScore(c.Request.Context(), c.Param("id"), req.Score); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update engagement", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// DonorStats 捐赠人统计
func (h *DonorHandler) DonorStats(c *gin.Context) {
	stats, err := h.donors.GetDonorStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get stats", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateSegment 创建分组
func (h *DonorHandler) CreateSegment(c *gin.Context) {
	var req services.SegmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	segment, err := h.segments.CreateSegment(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "already exists") {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create segment", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, segment)
}

// ListSegments 获取分组列表
func (h *DonorHandler) ListSegments(c *gin.Context) {
	segments, err := h.segments.ListSegments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list segments", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, segments)
}

// SegmentMembers 获取分组成员
func (h *DonorHandler) SegmentMembers(c *gin.Context) {
	members, err := h.segments.Members(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Segment not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// RegisterDonorRoutes 注册路由
func RegisterDonorRoutes(r *gin.RouterGroup, handler *DonorHandler) {
	donors := r.Group("/donors")
	{
		donors.GET("", handler.ListDonors)
		donors.POST("", handler.CreateDonor)
		donors.GET("/stats", handler.DonorStats)
		donors.GET("/:id", handler.GetDonor)
		donors.PUT("/:id", handler.UpdateDonor)
		donors.DELETE("/:id", handler.DeleteDonor)
		donors.POST("/:id/donations", handler.RecordDonation)
		donors.PUT("/:id/engagement", handler.UpdateEngagement)
	}

	segments := r.Group("/segments")
	{
		segments.GET("", handler.ListSegments)
		segments.POST("", handler.CreateSegment)
		segments.GET("/:name/members", handler.SegmentMembers)
	}
}
