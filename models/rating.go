package models

import (
	"time"
)

// Evaluation is the client's rating of a finalized service. One per service,
// never edited.
type Evaluation struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ServiceID  uint `json:"service_id" gorm:"not null;uniqueIndex"`
	ClientID   uint `json:"client_id" gorm:"not null"`
	ProviderID uint `json:"provider_id" gorm:"not null;index"` // provider's user id

	// Rating details
	Overall       int    `json:"overall" gorm:"type:int;not null;check:overall >= 1 AND overall <= 5"`
	Punctuality   int    `json:"punctuality" gorm:"type:int;not null;check:punctuality >= 1 AND punctuality <= 5"`
	Quality       int    `json:"quality" gorm:"type:int;not null;check:quality >= 1 AND quality <= 5"`
	Communication int    `json:"communication" gorm:"type:int;not null;check:communication >= 1 AND communication <= 5"`
	Comment       string `json:"comment" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Evaluation model
func (Evaluation) TableName() string {
	return "evaluations"
}

// EvaluateRequest represents the request structure for POST /services/:id/evaluate
type EvaluateRequest struct {
	Overall       int    `json:"overall" binding:"required,min=1,max=5"`
	Punctuality   int    `json:"punctuality" binding:"required,min=1,max=5"`
	Quality       int    `json:"quality" binding:"required,min=1,max=5"`
	Communication int    `json:"communication" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"max=1000"`
}

// ProviderStats is the derived rating summary for one provider.
type ProviderStats struct {
	ProviderID        uint    `json:"provider_id"`
	MeanRating        float64 `json:"mean_rating"`
	RatingCount       int     `json:"rating_count"`
	CompletedServices int     `json:"completed_services"`
}
