package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification channels an organization can pick for its subscribers.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Organization is an event-publishing tenant
type Organization struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Logo        string `json:"logo"`

	// Contact
	Email string `json:"email"`
	Phone string `json:"phone"`

	// How this organization reaches its subscribers. Actual transport is
	// pluggable (services.Sender); this only selects the channel.
	NotificationType string `json:"notification_type" gorm:"size:20;default:'email'"` // email, sms, whatsapp

	IsActive bool `json:"is_active" gorm:"default:true"`

	// Owner Information
	OwnerID uint `json:"owner_id" gorm:"not null"`
	Owner   User `json:"owner" gorm:"foreignKey:OwnerID"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Events                 []Event                 `json:"events,omitempty" gorm:"foreignKey:OrganizationID"`
	Subscriptions          []Subscription          `json:"subscriptions,omitempty" gorm:"foreignKey:OrganizationID"`
	AnonymousSubscriptions []AnonymousSubscription `json:"anonymous_subscriptions,omitempty" gorm:"foreignKey:OrganizationID"`
}
