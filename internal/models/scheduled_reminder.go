package models

import "time"

type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

// ReminderTime is the local wall-clock time every weekly reminder fires at.
const ReminderTime = "08:00"

type ScheduledReminder struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	PlanID            uint           `gorm:"not null;index" json:"plan_id"`
	ClientCode        string         `gorm:"not null" json:"client_code"`
	WeekNumber        int            `gorm:"not null" json:"week_number"`
	ScheduledDate     time.Time      `gorm:"type:date;not null" json:"scheduled_date"`
	ScheduledTime     string         `gorm:"not null" json:"scheduled_time"`
	MessageText       string         `gorm:"not null" json:"message_text"`
	Channel           string         `gorm:"not null" json:"channel"`
	Status            ReminderStatus `gorm:"not null;default:pending" json:"status"`
	RecurrenceEndDate time.Time      `gorm:"type:date;not null" json:"recurrence_end_date"`
	SentAt            *time.Time     `json:"sent_at"`
	CreatedAt         time.Time      `json:"created_at"`
}
