package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusScheduled PlanStatus = "scheduled"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPublished PlanStatus = "published"
	PlanStatusExpired   PlanStatus = "expired"
)

func (status PlanStatus) Valid() bool {
	switch status {
	case PlanStatusDraft, PlanStatusScheduled, PlanStatusActive, PlanStatusPublished, PlanStatusExpired:
		return true
	default:
		return false
	}
}

// MacroTargets holds daily macronutrient targets in grams.
type MacroTargets struct {
	ProteinGrams decimal.Decimal `json:"protein_grams"`
	CarbsGrams   decimal.Decimal `json:"carbs_grams"`
	FatGrams     decimal.Decimal `json:"fat_grams"`
}

// MealPlan is the authoritative plan record. ActiveDays holds weekday numbers
// (0=Sunday); nil or empty means every day.
type MealPlan struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	ClientCode          string          `gorm:"not null;index" json:"client_code"`
	Name                string          `gorm:"not null" json:"name"`
	Status              PlanStatus      `gorm:"not null;default:draft;index" json:"status"`
	ActiveFrom          *time.Time      `gorm:"type:date" json:"active_from"`
	ActiveUntil         *time.Time      `gorm:"type:date" json:"active_until"`
	ActiveDays          []int           `gorm:"serializer:json" json:"active_days"`
	Content             json.RawMessage `gorm:"type:text;not null" json:"content"`
	DailyTargetCalories int             `gorm:"not null;default:0" json:"daily_target_calories"`
	MacroTargets        MacroTargets    `gorm:"serializer:json" json:"macro_targets"`
	OwnerID             uint            `gorm:"not null;index" json:"owner_id"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PlanFilter narrows plan listings. Zero values are ignored.
type PlanFilter struct {
	OwnerID           uint
	ClientCode        string
	Status            PlanStatus
	ExcludeID         uint
	ActiveFromOn      []time.Time
	ActiveUntilBefore *time.Time
}

// LifecyclePatch is the set of columns a status transition writes. Nil dates
// are written as NULL.
type LifecyclePatch struct {
	Status      PlanStatus
	ActiveFrom  *time.Time
	ActiveUntil *time.Time
	ActiveDays  []int
}
