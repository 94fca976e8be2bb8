package models

import (
	"time"
)

// Verification is the admin review state of a provider profile.
type Verification string

const (
	VerificationUnsubmitted Verification = "unsubmitted"
	VerificationPending     Verification = "pending"
	VerificationApproved    Verification = "approved"
	VerificationRejected    Verification = "rejected"
)

// ProviderProfile holds a provider's public profile and derived stats.
// MeanRating, RatingCount and CompletedServices are written by the rating
// aggregator only.
type ProviderProfile struct {
	ID               uint         `json:"id" gorm:"primaryKey"`
	UserID           uint         `json:"user_id" gorm:"uniqueIndex;not null"`
	Bio              string       `json:"bio" gorm:"type:text"`
	Verification     Verification `json:"verification" gorm:"type:varchar(20);not null;default:'unsubmitted';check:verification IN ('unsubmitted','pending','approved','rejected')"`
	VerificationNote string       `json:"verification_note" gorm:"type:text"`

	MeanRating        float64 `json:"mean_rating" gorm:"type:decimal(3,2);not null;default:0"`
	RatingCount       int     `json:"rating_count" gorm:"not null;default:0"`
	CompletedServices int     `json:"completed_services" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User          User                   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Skills        []ProviderSkill        `json:"skills,omitempty" gorm:"foreignKey:ProviderProfileID"`
	Prices        []ProviderPrice        `json:"prices,omitempty" gorm:"foreignKey:ProviderProfileID"`
	Neighborhoods []ProviderNeighborhood `json:"neighborhoods,omitempty" gorm:"foreignKey:ProviderProfileID"`
	Availability  []AvailabilitySlot     `json:"availability,omitempty" gorm:"foreignKey:ProviderProfileID"`
}

func (ProviderProfile) TableName() string {
	return "provider_profiles"
}

// PriceFor returns the price in cents for a category, or 0 when unset.
// Prices must be preloaded.
func (p *ProviderProfile) PriceFor(c ServiceCategory) int {
	for _, pr := range p.Prices {
		if pr.Category == c {
			return pr.AmountCents
		}
	}
	return 0
}

// ProviderSkill tags a provider with a service type and, optionally, a
// category within it. Searches by category only match skills carrying that
// exact category.
type ProviderSkill struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	ProviderProfileID uint             `json:"-" gorm:"not null;index"`
	ServiceType       ServiceType      `json:"service_type" gorm:"type:varchar(20);not null"`
	Category          *ServiceCategory `json:"category" gorm:"type:varchar(30)"`
}

func (ProviderSkill) TableName() string {
	return "provider_skills"
}

type ProviderPrice struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	ProviderProfileID uint            `json:"-" gorm:"not null;uniqueIndex:idx_provider_price"`
	Category          ServiceCategory `json:"category" gorm:"type:varchar(30);not null;uniqueIndex:idx_provider_price"`
	AmountCents       int             `json:"amount_cents" gorm:"not null"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (ProviderPrice) TableName() string {
	return "provider_prices"
}

type ProviderNeighborhood struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	ProviderProfileID uint         `json:"-" gorm:"not null;uniqueIndex:idx_provider_neighborhood"`
	NeighborhoodID    uint         `json:"neighborhood_id" gorm:"not null;uniqueIndex:idx_provider_neighborhood"`
	Neighborhood      Neighborhood `json:"neighborhood" gorm:"foreignKey:NeighborhoodID"`
}

func (ProviderNeighborhood) TableName() string {
	return "provider_neighborhoods"
}

// AvailabilitySlot is one weekly half-day a provider works.
// Weekday follows time.Weekday (0 = Sunday).
type AvailabilitySlot struct {
	ID                uint  `json:"id" gorm:"primaryKey"`
	ProviderProfileID uint  `json:"-" gorm:"not null;uniqueIndex:idx_provider_slot"`
	Weekday           int   `json:"weekday" gorm:"not null;uniqueIndex:idx_provider_slot;check:weekday >= 0 AND weekday <= 6"`
	Shift             Shift `json:"shift" gorm:"type:varchar(10);not null;uniqueIndex:idx_provider_slot"`
	Active            bool  `json:"active" gorm:"not null"`
}

func (AvailabilitySlot) TableName() string {
	return "availability_slots"
}

// SearchResult is one row of the eligibility resolver's output.
type SearchResult struct {
	ProviderID        uint    `json:"provider_id"` // user id
	ProfileID         uint    `json:"profile_id"`
	FullName          string  `json:"full_name"`
	Bio               string  `json:"bio"`
	MeanRating        float64 `json:"mean_rating"`
	RatingCount       int     `json:"rating_count"`
	CompletedServices int     `json:"completed_services"`
	RiskTier          int     `json:"risk_tier"`
	PriceCents        int     `json:"price_cents,omitempty"`
}

// PriceInput is one entry of PUT /provider/prices.
type PriceInput struct {
	Category    ServiceCategory `json:"category" binding:"required,servicecategory"`
	AmountCents int             `json:"amount_cents" binding:"required,min=1000,max=800000"`
}

type UpdatePricesRequest struct {
	Prices []PriceInput `json:"prices" binding:"required,dive"`
}

type SkillInput struct {
	ServiceType ServiceType      `json:"service_type" binding:"required,servicetype"`
	Category    *ServiceCategory `json:"category" binding:"omitempty,servicecategory"`
}

type UpdateSkillsRequest struct {
	Skills []SkillInput `json:"skills" binding:"required,dive"`
}

type NeighborhoodInput struct {
	Name  string `json:"name" binding:"required,max=100"`
	City  string `json:"city" binding:"required,max=100"`
	State string `json:"state" binding:"required,len=2"`
}

type UpdateNeighborhoodsRequest struct {
	Neighborhoods []NeighborhoodInput `json:"neighborhoods" binding:"required,dive"`
}

type SlotInput struct {
	Weekday int   `json:"weekday" binding:"min=0,max=6"`
	Shift   Shift `json:"shift" binding:"required,shift"`
	Active  *bool `json:"active"`
}

type UpdateAvailabilityRequest struct {
	Slots []SlotInput `json:"slots" binding:"required,dive"`
}

type SubmitVerificationRequest struct {
	Bio string `json:"bio" binding:"max=2000"`
}
