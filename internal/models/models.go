package models

import (
	"time"

	"gorm.io/gorm"
)

// Donor is a supporter profile.
type Donor struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           string         `json:"phone"`
	Tier            string         `gorm:"default:'standard'" json:"tier"` // standard, major, legacy
	LifetimeTotal   float64        `json:"lifetime_total"`
	EngagementScore int            `json:"engagement_score"`
	Attributes      string         `gorm:"type:text" json:"attributes"` // free-form JSON blob
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Donations []Donation `gorm:"foreignKey:DonorID" json:"donations,omitempty"`
}

// Donation is one received gift.
type Donation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DonorID    string    `gorm:"index" json:"donor_id"`
	Amount     float64   `gorm:"not null" json:"amount"`
	Currency   string    `gorm:"default:'USD'" json:"currency"`
	Channel    string    `json:"channel"`  // web, mail, event, recurring
	Campaign   string    `json:"campaign"` // campaign identifier, optional
	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`

	Donor Donor `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
}

// Segment is a named donor grouping used as an action target.
type Segment struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []SegmentMember `gorm:"foreignKey:SegmentID" json:"members,omitempty"`
}

// SegmentMember joins a donor to a segment. AddedBy records the rule id when
// membership came from an automation.
type SegmentMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SegmentID string    `gorm:"index:idx_segment_donor,unique" json:"segment_id"`
	DonorID   string    `gorm:"index:idx_segment_donor,unique" json:"donor_id"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}
