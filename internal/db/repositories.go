package db

import "gorm.io/gorm"

type Repositories struct {
	Plans         *PlanRepository
	Mirrors       *MirrorRepository
	Reminders     *ReminderRepository
	Notifications *NotificationLogRepository
	Clients       *ClientRepository
	Dietitians    *DietitianRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Plans:         NewPlanRepository(database),
		Mirrors:       NewMirrorRepository(database),
		Reminders:     NewReminderRepository(database),
		Notifications: NewNotificationLogRepository(database),
		Clients:       NewClientRepository(database),
		Dietitians:    NewDietitianRepository(database),
	}
}
