package models

import (
	"encoding/json"
	"time"
)

// MirroredPlan is the client-visible copy of a currently active MealPlan.
type MirroredPlan struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	OriginalPlanID      uint            `gorm:"not null;uniqueIndex" json:"original_plan_id"`
	ClientCode          string          `gorm:"not null;index" json:"client_code"`
	Name                string          `gorm:"not null" json:"name"`
	Content             json.RawMessage `gorm:"type:text;not null" json:"content"`
	DailyTargetCalories int             `gorm:"not null;default:0" json:"daily_target_calories"`
	MacroTargets        MacroTargets    `gorm:"serializer:json" json:"macro_targets"`
	ActiveDays          []int           `gorm:"serializer:json" json:"active_days"`
	ActiveFrom          *time.Time      `gorm:"type:date" json:"active_from"`
	ActiveUntil         *time.Time      `gorm:"type:date" json:"active_until"`
	SyncedAt            time.Time       `gorm:"not null" json:"synced_at"`
}
