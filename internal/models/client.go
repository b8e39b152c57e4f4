package models

const (
	LangHebrew  = "he"
	LangEnglish = "en"
)

const (
	ChannelTelegram = "telegram"
	ChannelLog      = "log"
)

// Client is the person a meal plan is written for. Language and Channel drive
// how reminders and advance notices reach them.
type Client struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Code           string `gorm:"uniqueIndex;not null" json:"code"`
	DisplayName    string `gorm:"not null;default:''" json:"display_name"`
	Language       string `gorm:"not null;default:en" json:"language"`
	Channel        string `gorm:"not null;default:log" json:"channel"`
	TelegramChatID int64  `gorm:"not null;default:0" json:"telegram_chat_id"`
	OwnerID        uint   `gorm:"not null;index" json:"owner_id"`
}
