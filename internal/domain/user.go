package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account in the back office
type User struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	PAN             string     `json:"pan"`
	AadharNo        string     `json:"aadhar_no"`
	PasswordHash    string     `json:"-"` // Never expose password hash in JSON
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	IsVerified      bool       `json:"is_verified"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ProfileImageURL string     `json:"profile_image_url"`
	PANCardURL      string     `json:"pan_card_url"`
	AadharFrontURL  string     `json:"aadhar_front_url"`
	AadharBackURL   string     `json:"aadhar_back_url"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserRole constants
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// UserStatus constants
const (
	UserStatusActive    = "ACTIVE"
	UserStatusSuspended = "SUSPENDED"
)
