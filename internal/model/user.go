package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Parent  UserRole = "parent"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, Parent, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'student';index" json:"role"`
	Phone     string     `gorm:"size:30" json:"phone,omitempty"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Principal is the authenticated caller of a service operation. It is built once
// per request from the verified token and never mutated afterwards.
type Principal struct {
	UserID uint
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == Admin
}

// Owns reports whether the caller may act on content owned by ownerID.
func (p Principal) Owns(ownerID uint) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

// Learner is true for roles that only ever see published content.
func (p Principal) Learner() bool {
	return p.Role == Student || p.Role == Parent
}
