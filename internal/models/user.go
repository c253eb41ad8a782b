package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderMicrosoft = "microsoft"
	ProviderLocal     = "local"

	// TokenErrorRefresh flags a user whose stored refresh token no longer works.
	TokenErrorRefresh = "RefreshAccessTokenError"
)

// User is a portal account, optionally linked to an Azure AD identity.
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `gorm:"not null;default:''" json:"name"`
	Role         string `gorm:"type:varchar(16);not null;default:user;index" json:"role"`
	PasswordHash string `json:"-"`

	Provider       string     `gorm:"type:varchar(32)" json:"provider,omitempty"`
	ExternalID     string     `gorm:"index" json:"-"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	TokenError     string     `json:"tokenError,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// JobType classifies projects and inventory (e.g. "Security", "Audio/Video").
type JobType struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	Color       string `gorm:"type:varchar(16)" json:"color"`
}
