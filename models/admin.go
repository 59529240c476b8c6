package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin represents a back-office account known to the identity provider
type Admin struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Admin model
func (Admin) TableName() string {
	return "admins"
}
