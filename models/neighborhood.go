package models

import "time"

// Neighborhood is a known location record. Search and booking only match
// neighborhoods that exist here.
type Neighborhood struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_neighborhood_place"`
	City      string    `json:"city" gorm:"type:varchar(100);not null;uniqueIndex:idx_neighborhood_place"`
	State     string    `json:"state" gorm:"type:varchar(2);not null;uniqueIndex:idx_neighborhood_place"`
	CreatedAt time.Time `json:"created_at"`
}

func (Neighborhood) TableName() string {
	return "neighborhoods"
}
