package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog records every dispatch attempt, for registered users and
// anonymous subscribers alike.
type NotificationLog struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	EventID uint  `json:"event_id" gorm:"not null;index"`
	Event   Event `json:"-" gorm:"foreignKey:EventID"`

	UserID                  *uint                  `json:"user_id" gorm:"index"`
	User                    *User                  `json:"-" gorm:"foreignKey:UserID"`
	AnonymousSubscriptionID *uint                  `json:"anonymous_subscription_id" gorm:"index"`
	AnonymousSubscription   *AnonymousSubscription `json:"-" gorm:"foreignKey:AnonymousSubscriptionID"`

	NotificationType string `json:"notification_type" gorm:"size:20"` // email, sms, whatsapp
	Notice           string `json:"notice" gorm:"size:20"`            // creation | deletion | reminder

	Success      bool   `json:"success" gorm:"default:true"`
	ErrorMessage string `json:"error_message"`

	// Rule IDs that overlapped the event, set when the recipient asked for
	// schedule-matched notifications only.
	MatchedRules datatypes.JSON `json:"matched_rules" gorm:"type:json"`
	Confidence   string         `json:"confidence" gorm:"size:10"`

	SentAt time.Time `json:"sent_at" gorm:"autoCreateTime"`
}

// RecipientKind tells registered and anonymous recipients apart in listings.
func (n *NotificationLog) RecipientKind() string {
	if n.UserID != nil {
		return "registered"
	}
	if n.AnonymousSubscriptionID != nil {
		return "anonymous"
	}
	return "unknown"
}
