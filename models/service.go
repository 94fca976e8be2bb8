package models

import (
	"time"
)

// ServiceStatus is the closed set of lifecycle states of a booking.
type ServiceStatus string

const (
	StatusRequested  ServiceStatus = "REQUESTED"
	StatusAccepted   ServiceStatus = "ACCEPTED"
	StatusDeclined   ServiceStatus = "DECLINED"
	StatusCanceled   ServiceStatus = "CANCELED"
	StatusInProgress ServiceStatus = "IN_PROGRESS"
	StatusDone       ServiceStatus = "DONE"
	StatusConfirmed  ServiceStatus = "CONFIRMED"
	StatusFinalized  ServiceStatus = "FINALIZED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ServiceStatus{
	StatusRequested, StatusAccepted, StatusDeclined, StatusCanceled,
	StatusInProgress, StatusDone, StatusConfirmed, StatusFinalized,
}

// Valid reports whether s is a known status.
func (s ServiceStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ServiceStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusCanceled || s == StatusFinalized
}

// AddressDisclosed reports whether the full address is visible in s.
func (s ServiceStatus) AddressDisclosed() bool {
	switch s {
	case StatusAccepted, StatusInProgress, StatusDone, StatusConfirmed, StatusFinalized:
		return true
	default:
		return false
	}
}

// Service is a booking between one client and one provider.
// Rows are never deleted.
type Service struct {
	ID     uint          `json:"id" gorm:"primaryKey"`
	Status ServiceStatus `json:"status" gorm:"type:varchar(20);not null;index;check:status IN ('REQUESTED','ACCEPTED','DECLINED','CANCELED','IN_PROGRESS','DONE','CONFIRMED','FINALIZED')"`

	ServiceType ServiceType      `json:"service_type" gorm:"type:varchar(20);not null"`
	Category    *ServiceCategory `json:"category" gorm:"type:varchar(30)"`

	ScheduledDate string    `json:"scheduled_date" gorm:"type:varchar(10);not null"` // YYYY-MM-DD
	Shift         Shift     `json:"shift" gorm:"type:varchar(10);not null;check:shift IN ('morning','afternoon')"`
	ScheduledFor  time.Time `json:"scheduled_for" gorm:"not null"`

	City         string   `json:"city" gorm:"type:varchar(100);not null"`
	State        string   `json:"state" gorm:"type:varchar(2);not null"`
	Neighborhood string   `json:"neighborhood" gorm:"type:varchar(100);not null"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`

	// FullAddress stays null until the provider accepts.
	FullAddress    *string `json:"full_address" gorm:"type:text"`
	PendingAddress string  `json:"-" gorm:"type:text;not null"`

	FinalPriceCents   int    `json:"final_price_cents" gorm:"not null"`
	Notes             string `json:"notes" gorm:"type:text"`
	HasPet            bool   `json:"has_pet" gorm:"not null;default:false"`
	ThreePlusBedrooms bool   `json:"three_plus_bedrooms" gorm:"not null;default:false"`
	TwoPlusBathrooms  bool   `json:"two_plus_bathrooms" gorm:"not null;default:false"`

	LateCancellation bool  `json:"late_cancellation" gorm:"not null;default:false"`
	CanceledByRole   *Role `json:"canceled_by_role" gorm:"type:varchar(20)"`

	ClientID   uint `json:"client_id" gorm:"not null;index"`
	ProviderID uint `json:"provider_id" gorm:"not null;index"` // provider's user id

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Client   *User `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Provider *User `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// Redacted returns a copy safe to hand to a party: the address is cleared
// unless the status discloses it.
func (s Service) Redacted() Service {
	out := s
	if !s.Status.AddressDisclosed() {
		out.FullAddress = nil
	}
	return out
}

// IsParty reports whether userID is the client or the provider of s.
func (s *Service) IsParty(userID uint) bool {
	return s.ClientID == userID || s.ProviderID == userID
}

// Counterpart returns the other party of the booking.
func (s *Service) Counterpart(userID uint) uint {
	if s.ClientID == userID {
		return s.ProviderID
	}
	return s.ClientID
}

// CreateServiceRequest is the body of POST /services.
type CreateServiceRequest struct {
	ProviderID        uint             `json:"provider_id" binding:"required"`
	ServiceType       ServiceType      `json:"service_type" binding:"required,servicetype"`
	Category          *ServiceCategory `json:"category" binding:"omitempty,servicecategory"`
	ScheduledDate     string           `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	Shift             Shift            `json:"shift" binding:"required,shift"`
	City              string           `json:"city" binding:"required"`
	State             string           `json:"state" binding:"required,len=2"`
	Neighborhood      string           `json:"neighborhood" binding:"required"`
	Latitude          *float64         `json:"latitude" binding:"omitempty,latitude"`
	Longitude         *float64         `json:"longitude" binding:"omitempty,longitude"`
	FullAddress       string           `json:"full_address" binding:"required,max=500"`
	Notes             string           `json:"notes" binding:"max=1000"`
	HasPet            bool             `json:"has_pet"`
	ThreePlusBedrooms bool             `json:"three_plus_bedrooms"`
	TwoPlusBathrooms  bool             `json:"two_plus_bathrooms"`
}

// CancelRequest is the optional body of POST /services/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
