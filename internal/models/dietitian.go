package models

import "time"

// Dietitian owns clients and authors their meal plans.
type Dietitian struct {
	ID                 uint      `gorm:"primaryKey"`
	Email              string    `gorm:"uniqueIndex;not null"`
	PasswordHash       string    `gorm:"not null"`
	DisplayName        string    `gorm:"not null;default:''"`
	MustChangePassword bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null"`
}
