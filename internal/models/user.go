package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the single role a user holds.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient || r == RoleContractor
}

// User is an account of any role.
//
// ParentID links a contractor or team member to the admin (or client) that
// manages it. OrganizationID is the root of that hierarchy, stored on every
// user so team queries never walk ParentID.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string `gorm:"size:255" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	CompanyName  string `gorm:"size:255" json:"companyName,omitempty"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         Role   `gorm:"size:20;not null;default:'client';index" json:"role"`

	ParentID       *uint `gorm:"index" json:"parentId,omitempty"`
	OrganizationID uint  `gorm:"index" json:"organizationId"`
}

// GetUserID implements Ownable: a user owns their own record.
func (u *User) GetUserID() uint { return u.ID }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserSummary is the public shape of a user embedded in other payloads.
type UserSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName,omitempty"`
	Role        Role   `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, CompanyName: u.CompanyName, Role: u.Role}
}
