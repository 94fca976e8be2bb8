package models

import (
	"time"

	"gorm.io/datatypes"
)

// ServiceEvent is one entry of the append-only service ledger. A dispute
// marker has FromStatus equal to ToStatus.
type ServiceEvent struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ServiceID  uint           `json:"service_id" gorm:"not null;index"`
	FromStatus ServiceStatus  `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   ServiceStatus  `json:"to_status" gorm:"type:varchar(20);not null"`
	ActorRole  Role           `json:"actor_role" gorm:"type:varchar(20);not null"`
	ActorID    uint           `json:"actor_id" gorm:"not null"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

func (ServiceEvent) TableName() string {
	return "service_events"
}
