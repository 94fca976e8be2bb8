package models

import "time"

type SafetyEventType string

const (
	SafetyCheckinOK SafetyEventType = "checkin_ok"
	SafetySOSSilent SafetyEventType = "sos_silent"
)

// SafetyEvent records a check-in or a silent SOS during a service.
type SafetyEvent struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Type      SafetyEventType `json:"type" gorm:"type:varchar(20);not null;check:type IN ('checkin_ok','sos_silent')"`
	UserID    uint            `json:"user_id" gorm:"not null;index"`
	ServiceID *uint           `json:"service_id" gorm:"index"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	CreatedAt time.Time       `json:"created_at"`
}

func (SafetyEvent) TableName() string {
	return "safety_events"
}

type SafetyRequest struct {
	ServiceID *uint    `json:"service_id"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}
