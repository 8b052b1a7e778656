package services

import (
	"context"
	"fmt"

	"donorflow/internal/automation"
	"donorflow/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SegmentService 分组管理服务
type SegmentService struct {
	db     *gorm.DB
	logger *logrus.Logger
	engine *automation.Engine
}

// NewSegmentService creates the segment service. engine may be nil, in which
// case membership changes emit no events.
func NewSegmentService(db *gorm.DB, engine *automation.Engine, logger *logrus.Logger) *SegmentService {
	if logger == nil {
		logger = logrus.New()
	}

	return &SegmentService{
		db:     db,
		logger: logger,
		engine: engine,
	}
}

// SetEngine late-binds the automation engine. The engine's add_to_segment
// handler depends on this service, so the two are wired in stages.
func (s *SegmentService) SetEngine(engine *automation.Engine) {
	s.engine = engine
}

// SegmentCreateRequest 创建分组请求
type SegmentCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateSegment 创建分组
func (s *SegmentService) CreateSegment(ctx context.Context, req *SegmentCreateRequest) (*models.Segment, error) {
	var existing models.Segment
	if err := s.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("segment name already exists")
	}

	segment := &models.Segment{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.db.Create(segment).Error; err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}

	s.logger.Infof("Created segment %s (%s)", segment.Name, segment.ID)

	return segment, nil
}

// GetSegmentByName 根据名称获取分组
func (s *SegmentService) GetSegmentByName(ctx context.Context, name string) (*models.Segment, error) {
	var segment models.Segment
	if err := s.db.Where("name = ?", name).First(&segment).Error; err != nil {
		return nil, fmt.Errorf("segment not found: %w", err)
	}
	return &segment, nil
}

// ListSegments 获取分组列表
func (s *SegmentService) ListSegments(ctx context.Context) ([]models.Segment, error) {
	var segments []models.Segment
	if err := s.db.Order("name ASC").Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// AddMember joins a donor to a segment by name, creating the segment on first
// use. addedBy records the originating rule id for automated additions.
// Adding an existing member is a no-op.
func (s *SegmentService) AddMember(ctx context.Context, segmentName, donorID, addedBy string) error {
	if segmentName == "" {
		return fmt.Errorf("segment name is required")
	}
	if donorID == "" {
		return fmt.Errorf("donor ID is required")
	}

	segment, err := s.GetSegmentByName(ctx, segmentName)
	if err != nil {
		segment = &models.Segment{
			ID:   uuid.NewString(),
			Name: segmentName,
		}
		if err := s.db.Create(segment).Error; err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}
		s.logger.Infof("Auto-created segment %s (%s)", segment.Name, segment.ID)
	}

	var existing models.SegmentMember
	if err := s.db.Where("segment_id = ? AND donor_id = ?", segment.ID, donorID).
		First(&existing).Error; err == nil {
		return nil
	}

	member := &models.SegmentMember{
		SegmentID: segment.ID,
		DonorID:   donorID,
		AddedBy:   addedBy,
	}
	if err := s.db.Create(member).Error; err != nil {
		return fmt.Errorf("failed to add segment member: %w", err)
	}

	s.logger.Infof("Added donor %s to segment %s", donorID, segment.Name)

	if s.engine != nil {
		s.engine.TriggerEvent(ctx, "segment_changed", map[string]interface{}{
			"donorId": donorID,
			"segment": segment.Name,
			"change":  "added",
		})
	}

	return nil
}

// RemoveMember drops a donor from a segment. Unknown memberships are a no-op.
func (s *SegmentService) RemoveMember(ctx context.Context, segmentName, donorID string) error {
	segment, err := s.GetSegmentByName(ctx, segmentName)
	if err != nil {
		return nil
	}

	result := s.db.Where("segment_id = ? AND donor_id = ?", segment.ID, donorID).
		Delete(&models.SegmentMember{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove segment member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	s.logger.Infof("Removed donor %s from segment %s", donorID, segment.Name)

	if s.engine != nil {
		s.engine.TriggerEvent(ctx, "segment_changed", map[string]interface{}{
			"donorId": donorID,
			"segment": segment.Name,
			"change":  "removed",
		})
	}

	return nil
}

// Members lists the donor ids in a segment.
func (s *SegmentService) Members(ctx context.Context, segmentName string) ([]string, error) {
	segment, err := s.GetSegmentByName(ctx, segmentName)
	if err != nil {
		return nil, err
	}

	var members []models.SegmentMember
	if err := s.db.Where("segment_id = ?", segment.ID).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.DonorID)
	}
	return ids, nil
}
