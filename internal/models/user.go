package models

import (
	"strings"
	"time"
)

// User roles
const (
	RoleClient   = "CLIENT"
	RoleMerchant = "MERCHANT"
)

// User is owned by the registration and auth collaborators; the wallet core
// only reads it to resolve receivers and to summarise ledger entries.
type User struct {
	ID           uint   `gorm:"primarykey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null;default:''" json:"-"`
	Role         string `gorm:"not null;default:'CLIENT'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsMerchant reports whether the user can receive merchant payments.
func (u *User) IsMerchant() bool {
	return u.Role == RoleMerchant
}

// NormalizeEmail is the lookup key form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserSummary is the public projection of a user embedded in ledger responses.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
