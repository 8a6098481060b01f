package models

import "time"

const SettingCategoryPricing = "pricing"

// Pricing keys under SettingCategoryPricing.
const (
	SettingMessageRate         = "message_rate"
	SettingGroupMessageRate    = "group_message_rate"
	SettingTelegramMessageRate = "telegram_message_rate"
	SettingWhatsappMessageRate = "whatsapp_message_rate"
)

// Setting is a typed-as-string configuration value. The rate resolver reads
// the whole "pricing" category in bulk and caches it.
type Setting struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Category  string `gorm:"uniqueIndex:idx_settings_cat_key;not null"`
	Key       string `gorm:"uniqueIndex:idx_settings_cat_key;not null"`
	Value     string `gorm:"type:text;not null"`
}
