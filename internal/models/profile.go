package models

import (
	"strings"
	"time"
)

// UnknownParticipantLabel is shown for participants without a name or email
const UnknownParticipantLabel = "Unknown customer"

// ProfileRole distinguishes staff accounts from customers
type ProfileRole string

const (
	RoleCustomer ProfileRole = "customer"
	RoleAdmin    ProfileRole = "admin"
)

// Profile represents a known user of the storefront
type Profile struct {
	ID        string      `gorm:"primaryKey;size:64" json:"id"`
	FullName  string      `gorm:"size:255" json:"full_name,omitempty"`
	Email     string      `gorm:"size:255;index" json:"email,omitempty"`
	Role      ProfileRole `gorm:"size:32;not null;default:customer" json:"role"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// DisplayLabel returns the full name, falling back to the email and then
// to UnknownParticipantLabel
func (p *Profile) DisplayLabel() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		return email
	}
	return UnknownParticipantLabel
}

// IsAdmin reports whether the profile belongs to staff
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
