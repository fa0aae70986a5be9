package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered subscriber account. Authentication lives outside this
// service; we only keep the profile fields that subscriptions, availability
// and notification dispatch need.
type User struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`

	// Contact channels used by sms/whatsapp dispatch
	PhoneNumber    string `json:"phone_number"`
	WhatsAppNumber string `json:"whatsapp_number"`

	// IANA zone name, e.g. "Europe/Berlin". Availability rule windows are
	// wall-clock times in this zone.
	Timezone string `json:"timezone" gorm:"default:'UTC'"`

	AllowsNotifications *bool `json:"allows_notifications" gorm:"default:true"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Subscriptions     []Subscription     `json:"subscriptions,omitempty" gorm:"foreignKey:UserID"`
	AvailabilityRules []AvailabilityRule `json:"availability_rules,omitempty" gorm:"foreignKey:UserID"`
}
