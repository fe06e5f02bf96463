package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCandidate    UserRole = "candidate"
	RolePsychologist UserRole = "psychologist"
	RoleAdmin        UserRole = "admin"
	RoleSuperAdmin   UserRole = "superadmin"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	// Status
	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// CanManageExams reports whether the role may author, publish or delete exams.
func (r UserRole) CanManageExams() bool {
	return r == RolePsychologist || r == RoleAdmin || r == RoleSuperAdmin
}
