package models

import "time"

// Notification preferences: notify about every event, or only events that
// overlap the subscriber's declared availability.
const (
	PreferenceAll      = "all"
	PreferenceMatching = "matching"
)

// Subscription links a registered user to an organization they follow.
type Subscription struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	UserID         uint         `json:"user_id" gorm:"not null;index:idx_sub_user_org,unique"`
	User           User         `json:"user" gorm:"foreignKey:UserID"`
	OrganizationID uint         `json:"organization_id" gorm:"not null;index:idx_sub_user_org,unique"`
	Organization   Organization `json:"organization" gorm:"foreignKey:OrganizationID"`

	NotificationPreference string `json:"notification_preference" gorm:"size:20;default:'all'"` // all | matching

	CreatedAt time.Time `json:"created_at"`
}

// AnonymousSubscription is a follower without an account, reached by email
// (or phone) only. One row per email per organization.
type AnonymousSubscription struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	OrganizationID uint         `json:"organization_id" gorm:"not null;index:idx_anon_email_org,unique"`
	Organization   Organization `json:"organization" gorm:"foreignKey:OrganizationID"`

	Name           string `json:"name" gorm:"not null"`
	Email          string `json:"email" gorm:"not null;index:idx_anon_email_org,unique"`
	PhoneNumber    string `json:"phone_number"`
	WhatsAppNumber string `json:"whatsapp_number"`

	// Same convention as User.Timezone
	Timezone string `json:"timezone" gorm:"default:'UTC'"`

	NotificationPreference string `json:"notification_preference" gorm:"size:20;default:'all'"` // all | matching

	// Verification: nothing is dispatched to an address that never confirmed.
	IsVerified        bool   `json:"is_verified" gorm:"default:false"`
	VerificationToken string `json:"-" gorm:"size:100;index"`

	CreatedAt time.Time `json:"created_at"`
}
