package models

import (
	"time"
)

type IncidentType string

const (
	IncidentHarassment  IncidentType = "harassment"
	IncidentImportunity IncidentType = "importunity"
	IncidentViolence    IncidentType = "violence"
	IncidentThreat      IncidentType = "threat"
	IncidentOther       IncidentType = "other"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentHarassment, IncidentImportunity, IncidentViolence, IncidentThreat, IncidentOther:
		return true
	}
	return false
}

type IncidentSeverity string

const (
	SeverityLow    IncidentSeverity = "low"
	SeverityMedium IncidentSeverity = "medium"
	SeverityHigh   IncidentSeverity = "high"
)

func (s IncidentSeverity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

type IncidentStatus string

const (
	IncidentOpen      IncidentStatus = "open"
	IncidentInReview  IncidentStatus = "in_review"
	IncidentConfirmed IncidentStatus = "confirmed"
	IncidentClosed    IncidentStatus = "closed"
)

func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentInReview, IncidentConfirmed, IncidentClosed:
		return true
	}
	return false
}

// CountsTowardRisk reports whether reports in this status enter the risk score.
func (s IncidentStatus) CountsTowardRisk() bool {
	return s == IncidentOpen || s == IncidentConfirmed
}

// IncidentReport is a complaint filed by one user against another.
// Confirmed and open reports feed the reported user's risk score.
type IncidentReport struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	ReporterID     uint             `json:"reporter_id" gorm:"not null;index"`
	ReportedUserID uint             `json:"reported_user_id" gorm:"not null;index"`
	ServiceID      *uint            `json:"service_id" gorm:"index"`
	Type           IncidentType     `json:"type" gorm:"type:varchar(20);not null;check:type IN ('harassment','importunity','violence','threat','other')"`
	Severity       IncidentSeverity `json:"severity" gorm:"type:varchar(10);not null;default:'medium';check:severity IN ('low','medium','high')"`
	Description    string           `json:"description" gorm:"type:text;not null"`
	Status         IncidentStatus   `json:"status" gorm:"type:varchar(20);not null;default:'open';check:status IN ('open','in_review','confirmed','closed')"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Relationships
	Attachments  []IncidentAttachment `json:"attachments,omitempty" gorm:"foreignKey:IncidentID"`
	Reporter     *User                `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
	ReportedUser *User                `json:"reported_user,omitempty" gorm:"foreignKey:ReportedUserID"`
}

func (IncidentReport) TableName() string {
	return "incident_reports"
}

type IncidentAttachment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	IncidentID uint      `json:"incident_id" gorm:"not null;index"`
	Key        string    `json:"key" gorm:"type:varchar(255);not null"`
	URL        string    `json:"url" gorm:"type:varchar(500);not null"`
	Mime       string    `json:"mime" gorm:"type:varchar(50);not null"`
	Size       int64     `json:"size" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (IncidentAttachment) TableName() string {
	return "incident_attachments"
}

// CreateIncidentRequest is the JSON (or multipart form) body of POST /incidents.
type CreateIncidentRequest struct {
	ReportedUserID uint             `json:"reported_user_id" form:"reported_user_id" binding:"required"`
	ServiceID      *uint            `json:"service_id" form:"service_id"`
	Type           IncidentType     `json:"type" form:"type" binding:"required,incidenttype"`
	Severity       IncidentSeverity `json:"severity" form:"severity" binding:"omitempty,incidentseverity"`
	Description    string           `json:"description" form:"description" binding:"required,min=4,max=2000"`
}

type UpdateIncidentStatusRequest struct {
	Status IncidentStatus `json:"status" binding:"required,incidentstatus"`
}
