package models

import (
	"time"

	"gorm.io/gorm"
)

// Responses a subscriber can give to an event.
const (
	ResponseYes   = "yes"
	ResponseNo    = "no"
	ResponseMaybe = "maybe"
)

// Event is a single scheduled, non-recurring occurrence published by an
// organization. Treated as immutable once notifications have gone out.
type Event struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	OrganizationID uint         `json:"organization_id" gorm:"not null;index:idx_event_org_slug,unique"`
	Organization   Organization `json:"organization" gorm:"foreignKey:OrganizationID"`

	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"size:250;index:idx_event_org_slug,unique"`
	Description string `json:"description"`

	StartDatetime time.Time `json:"start_datetime" gorm:"not null;index"`
	EndDatetime   time.Time `json:"end_datetime" gorm:"not null"`
	// IANA zone the event was scheduled in (usually the organization's).
	Timezone string `json:"timezone" gorm:"default:'UTC'"`

	Location string `json:"location"`

	// Notification settings
	NotifyOnCreation  *bool `json:"notify_on_creation" gorm:"default:true"`
	NotifyHoursBefore int   `json:"notify_hours_before" gorm:"default:24"`
	NotifyOnDeletion  *bool `json:"notify_on_deletion" gorm:"default:true"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Responses []EventResponse `json:"responses,omitempty" gorm:"foreignKey:EventID"`
}

// IsUpcoming reports whether the event has not started yet.
func (e *Event) IsUpcoming() bool {
	return e.StartDatetime.After(time.Now())
}

// DurationHours returns the event length in hours.
func (e *Event) DurationHours() float64 {
	return e.EndDatetime.Sub(e.StartDatetime).Hours()
}

// EventResponse is a yes/no/maybe answer from one subscriber. One response
// per subscriber per event; repeated answers overwrite.
type EventResponse struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	EventID uint  `json:"event_id" gorm:"not null;index"`
	Event   Event `json:"-" gorm:"foreignKey:EventID"`

	UserID                  *uint                  `json:"user_id" gorm:"index"`
	User                    *User                  `json:"-" gorm:"foreignKey:UserID"`
	AnonymousSubscriptionID *uint                  `json:"anonymous_subscription_id" gorm:"index"`
	AnonymousSubscription   *AnonymousSubscription `json:"-" gorm:"foreignKey:AnonymousSubscriptionID"`

	Response string `json:"response" gorm:"size:10;not null"` // yes | no | maybe

	RespondedAt time.Time `json:"responded_at" gorm:"autoUpdateTime"`
}
