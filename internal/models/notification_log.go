package models

import "time"

const (
	NotificationTypeAdvance  = "advance"
	NotificationTypeReminder = "reminder"
)

// NotificationLog records every dispatched notification. DedupeKey is unique,
// which is what keeps repeated advance-notice runs from double sending.
type NotificationLog struct {
	ID           uint      `gorm:"primaryKey"`
	DedupeKey    string    `gorm:"not null;uniqueIndex"`
	ClientCode   string    `gorm:"not null;index"`
	Type         string    `gorm:"not null"`
	PlanName     string    `gorm:"not null;default:''"`
	CalendarDate time.Time `gorm:"type:date;not null"`
	Channel      string    `gorm:"not null"`
	SentAt       time.Time `gorm:"not null"`
}
