package models

import "time"

// Recurrence kinds for availability rules.
const (
	RecurrenceWeekly         = "weekly"
	RecurrenceMonthlyWeekday = "monthly_weekday"
	RecurrenceMonthlyDay     = "monthly_day"
	RecurrenceSpecificDate   = "specific_date"
)

// Ordinals for monthly_weekday rules ("second Tuesday", "last Friday", ...).
const (
	OrdinalFirst  = "first"
	OrdinalSecond = "second"
	OrdinalThird  = "third"
	OrdinalFourth = "fourth"
	OrdinalLast   = "last"
)

// Confidence tiers a subscriber tags their availability with.
const (
	ConfidenceSure  = "sure"
	ConfidenceMaybe = "maybe"
)

// AvailabilityRule is one recurring availability window declared by a
// subscriber (registered or anonymous) towards one organization. Many rules
// may coexist and overlap freely.
type AvailabilityRule struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	OrganizationID uint `json:"organization_id" gorm:"not null;index"`

	// Exactly one of the two owners is set.
	UserID                  *uint                  `json:"user_id" gorm:"index"`
	User                    *User                  `json:"-" gorm:"foreignKey:UserID"`
	AnonymousSubscriptionID *uint                  `json:"anonymous_subscription_id" gorm:"index"`
	AnonymousSubscription   *AnonymousSubscription `json:"-" gorm:"foreignKey:AnonymousSubscriptionID"`

	RecurrenceKind string `json:"recurrence_kind" gorm:"size:20;not null;default:'weekly'"` // weekly | monthly_weekday | monthly_day | specific_date

	// Weekday uses Go's numbering: 0 = Sunday .. 6 = Saturday.
	Weekday int `json:"weekday"`
	// Ordinal picks the nth weekday of the month for monthly_weekday rules:
	// first, second, third, fourth, last.
	Ordinal string `json:"ordinal" gorm:"size:10"`
	// DayOfMonth (1-31) is set for monthly_day rules. Days past a month's end
	// simply never occur in that month.
	DayOfMonth int `json:"day_of_month"`
	// SpecificDate is set for specific_date rules only.
	SpecificDate *time.Time `json:"specific_date" gorm:"type:date"`

	// Wall-clock window "HH:MM" in the owner's declared timezone,
	// start strictly before end. Enforced at creation time.
	StartTime string `json:"start_time" gorm:"size:5;not null"`
	EndTime   string `json:"end_time" gorm:"size:5;not null"`

	Confidence string `json:"confidence" gorm:"size:10;default:'sure'"` // sure | maybe

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
