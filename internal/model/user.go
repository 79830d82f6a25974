package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleJournalist Role = "journalist"
)

// ParseRole converts a raw string into a Role, rejecting anything outside the enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleJournalist:
		return RoleJournalist, nil
	}
	return "", fmt.Errorf("invalid role %q: must be admin or journalist", s)
}

// IsAdmin reports whether the role carries admin privileges.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleJournalist:
		return false
	}
	return false
}

// User represents a staff account that can sign in to the sales desk
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // stored lower-cased
	Password    string     `gorm:"type:varchar(255);not null" json:"-"`
	Role        Role       `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  Role
}

// CanActOn reports whether the actor may mutate a record owned by ownerID.
func (a Actor) CanActOn(ownerID uuid.UUID) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleJournalist:
		return a.ID == ownerID
	}
	return false
}
