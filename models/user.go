package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of actor roles carried in the session token.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	default:
		return false
	}
}

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	FullName     string     `json:"full_name" gorm:"size:255;not null"`
	PhoneNumber  string     `json:"phone_number" gorm:"size:20;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role         Role       `json:"role" gorm:"type:varchar(20);not null;default:'client';check:role IN ('client','provider','admin')"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';check:status IN ('active','blocked')"`

	// Derived by the risk scorer only.
	RiskScore int `json:"risk_score" gorm:"not null;default:0"`
	RiskTier  int `json:"risk_tier" gorm:"not null;default:0;check:risk_tier >= 0 AND risk_tier <= 3"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleClient
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// IsActive checks if the user account can act on the marketplace
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsProvider checks if the user is a provider
func (u *User) IsProvider() bool {
	return u.Role == RoleProvider
}

// IsAdmin checks if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID          uint   `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
	RiskTier    int    `json:"risk_tier"`
}

// Summary returns the public projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		RiskTier:    u.RiskTier,
	}
}

// RegisterRequest is the body of POST /auth/register. Admin accounts are
// created from the command line only.
type RegisterRequest struct {
	FullName    string `json:"full_name" binding:"required,max=255"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	Role        Role   `json:"role" binding:"omitempty,oneof=client provider"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}
