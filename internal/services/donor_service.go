package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"donorflow/internal/automation"
	"donorflow/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// major-donor promotion threshold, lifetime USD
const majorTierThreshold = 10000

// DonorService manages donor profiles and gift intake. Profile and donation
// writes emit the corresponding automation events.
type DonorService struct {
	db     *gorm.DB
	logger *logrus.Logger
	engine *automation.Engine
}

// NewDonorService creates the donor service. engine may be nil, in which case
// no events are emitted.
func NewDonorService(db *gorm.DB, engine *automation.Engine, logger *logrus.Logger) *DonorService {
	if logger == nil {
		logger = logrus.New()
	}

	return &DonorService{
		db:     db,
		logger: logger,
		engine: engine,
	}
}

// DonorCreateRequest 创建捐赠人请求
type DonorCreateRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Tier      string `json:"tier"`
}

// DonorUpdateRequest carries a partial profile update.
type DonorUpdateRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Tier      *string `json:"tier"`
}

// DonorListRequest 捐赠人列表请求
type DonorListRequest struct {
	Page      int      `form:"page,default=1"`
	PageSize  int      `form:"page_size,default=20"`
	Search    string   `form:"search"`
	Tier      []string `form:"tier"`
	SortBy    string   `form:"sort_by,default=created_at"`
	SortOrder string   `form:"sort_order,default=desc"`
}

// DonationRequest records one received gift.
type DonationRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency"`
	Channel  string  `json:"channel"`
	Campaign string  `json:"campaign"`
}

// CreateDonor 创建捐赠人
func (s *DonorService) CreateDonor(ctx context.Context, req *DonorCreateRequest) (*models.Donor, error) {
	var existing models.Donor
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("email already exists")
	}

	donor := &models.Donor{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Tier:      req.Tier,
	}
	if donor.Tier == "" {
		donor.Tier = "standard"
	}

	if err := s.db.Create(donor).Error; err != nil {
		return nil, fmt.Errorf("failed to create donor: %w", err)
	}

	s.logger.Infof("Created donor %s (%s)", donor.ID, donor.Email)

	return donor, nil
}

// GetDonorByID 根据ID获取捐赠人
func (s *DonorService) GetDonorByID(ctx context.Context, donorID string) (*models.Donor, error) {
	var donor models.Donor
	err := s.db.Preload("Donations", func(db *gorm.DB) *gorm.DB {
		return db.Order("received_at DESC").Limit(10)
	}).First(&donor, "id = ?", donorID).Error

	if err != nil {
		return nil, fmt.Errorf("donor not found: %w", err)
	}

	return &donor, nil
}

// UpdateDonor merges a partial profile update and emits profile_updated with
// the changed field names.
func (s *DonorService) UpdateDonor(ctx context.Context, donorID string, req *DonorUpdateRequest) (*models.Donor, error) {
	updates := make(map[string]interface{})
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Tier != nil {
		updates["tier"] = *req.Tier
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Donor{}).Where("id = ?", donorID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update donor: %w", err)
		}
	}

	donor, err := s.GetDonorByID(ctx, donorID)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Updated donor %s", donorID)

	if s.engine != nil && len(updates) > 0 {
		changed := make([]interface{}, 0, len(updates))
		for field := range updates {
			changed = append(changed, field)
		}
		s.engine.TriggerEvent(ctx, "profile_updated", map[string]interface{}{
			"donorId":       donor.ID,
			"email":         donor.Email,
			"tier":          donor.Tier,
			"changedFields": changed,
		})
	}

	return donor, nil
}

// ListDonors 获取捐赠人列表
func (s *DonorService) ListDonors(ctx context.Context, req *DonorListRequest) ([]models.Donor, int64, error) {
	query := s.db.Model(&models.Donor{})

	if len(req.Tier) > 0 {
		query = query.Where("tier IN ?", req.Tier)
	}
	if req.Search != "" {
		searchTerm := "%" + req.Search + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count donors: %w", err)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := strings.ToLower(req.SortOrder)
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var donors []models.Donor
	if err := query.Find(&donors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list donors: %w", err)
	}

	return donors, total, nil
}

// RecordDonation stores the gift, rolls it into the donor's lifetime total,
// promotes the tier when the major threshold is crossed, and emits
// donation_made.
func (s *DonorService) RecordDonation(ctx context.Context, donorID string, req *DonationRequest) (*models.Donation, error) {
	donor, err := s.GetDonorByID(ctx, donorID)
	if err != nil {
		return nil, err
	}

	donation := &models.Donation{
		DonorID:    donorID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Channel:    req.Channel,
		Campaign:   req.Campaign,
		ReceivedAt: time.Now(),
	}
	if donation.Currency == "" {
		donation.Currency = "USD"
	}
	if donation.Channel == "" {
		donation.Channel = "web"
	}

	if err := s.db.Create(donation).Error; err != nil {
		return nil, fmt.Errorf("failed to record donation: %w", err)
	}

	newTotal := donor.LifetimeTotal + req.Amount
	updates := map[string]interface{}{"lifetime_total": newTotal}
	tier := donor.Tier
	if newTotal >= majorTierThreshold && tier == "standard" {
		tier = "major"
		updates["tier"] = tier
	}
	if err := s.db.Model(&models.Donor{}).Where("id = ?", donorID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update lifetime total: %w", err)
	}

	s.logger.Infof("Recorded donation of %.2f %s from donor %s via %s",
		donation.Amount, donation.Currency, donorID, donation.Channel)

	if s.engine != nil {
		s.engine.TriggerDonationEvent(ctx, map[string]interface{}{
			"donorId":       donor.ID,
			"email":         donor.Email,
			"amount":        req.Amount,
			"currency":      donation.Currency,
			"channel":       donation.Channel,
			"campaign":      donation.Campaign,
			"lifetimeTotal": newTotal,
			"tier":          tier,
		})
		if tier != donor.Tier {
			s.engine.TriggerEvent(ctx, "segment_changed", map[string]interface{}{
				"donorId": donor.ID,
				"email":   donor.Email,
				"from":    donor.Tier,
				"to":      tier,
			})
		}
	}

	return donation, nil
}

// UpdateEngagementScore sets the donor's engagement score and emits
// score_changed with the old and new values.
func (s *DonorService) UpdateEngagementScore(ctx context.Context, donorID string, score int) error {
	donor, err := s.GetDonorByID(ctx, donorID)
	if err != nil {
		return err
	}
	if score == donor.EngagementScore {
		return nil
	}

	if err := s.db.Model(&models.Donor{}).
		Where("id = ?", donorID).
		Update("engagement_score", score).Error; err != nil {
		return fmt.Errorf("failed to update engagement score: %w", err)
	}

	s.logger.Infof("Updated engagement score for donor %s: %d -> %d", donorID, donor.EngagementScore, score)

	if s.engine != nil {
		s.engine.TriggerEvent(ctx, "score_changed", map[string]interface{}{
			"donorId":  donor.ID,
			"email":    donor.Email,
			"oldScore": donor.EngagementScore,
			"newScore": score,
		})
	}

	return nil
}

// DeleteDonor soft-deletes the profile.
func (s *DonorService) DeleteDonor(ctx context.Context, donorID string) error {
	result := s.db.Delete(&models.Donor{}, "id = ?", donorID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete donor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("donor not found")
	}

	s.logger.Infof("Deleted donor %s", donorID)

	return nil
}

// DonorStats 捐赠人统计信息
type DonorStats struct {
	Total        int64        `json:"total"`
	NewThisWeek  int64        `json:"new_this_week"`
	TotalRaised  float64      `json:"total_raised"`
	ByTier       []TierCount  `json:"by_tier"`
	ByChannel    []ChanAmount `json:"by_channel"`
}

type TierCount struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

type ChanAmount struct {
	Channel string  `json:"channel"`
	Amount  float64 `json:"amount"`
}

// GetDonorStats 获取捐赠人统计信息
func (s *DonorService) GetDonorStats(ctx context.Context) (*DonorStats, error) {
	stats := &DonorStats{}

	s.db.Model(&models.Donor{}).Count(&stats.Total)

	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	s.db.Model(&models.Donor{}).
		Where("created_at > ?", sevenDaysAgo).
		Count(&stats.NewThisWeek)

	s.db.Model(&models.Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalRaised)

	s.db.Model(&models.Donor{}).
		Select("tier, COUNT(*) as count").
		Group("tier").
		Scan(&stats.ByTier)

	s.db.Model(&models.Donation{}).
		Select("channel, SUM(amount) as amount").
		Group("channel").
		Scan(&stats.ByChannel)

	return stats, nil
}
