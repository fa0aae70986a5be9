package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/oabuhamdan/event-coordinator/matcher"
	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

// Notice kinds dispatched for an event's lifecycle.
const (
	NoticeCreation = "creation"
	NoticeDeletion = "deletion"
	NoticeReminder = "reminder"
)

// Message is one outbound notification, channel-agnostic.
type Message struct {
	Channel   string // email, sms, whatsapp
	Recipient string // address or normalized phone number
	Subject   string
	Body      string
}

// Sender delivers a single message over its channel. Real transports plug in
// here; the default just logs.
type Sender interface {
	Send(msg Message) error
}

// LogSender writes every message to the process log instead of delivering it.
// Used in development and as the fallback when no transport is configured.
type LogSender struct{}

func (LogSender) Send(msg Message) error {
	log.Printf("📨 [%s → %s] %s: %s", msg.Channel, msg.Recipient, msg.Subject, msg.Body)
	return nil
}

// DispatchService fans event notifications out to an organization's
// subscribers, honoring per-subscriber preferences and availability rules.
type DispatchService struct {
	sender Sender
}

// NewDispatchService creates a dispatch service. A nil sender falls back to
// LogSender.
func NewDispatchService(sender Sender) *DispatchService {
	if sender == nil {
		sender = LogSender{}
	}
	return &DispatchService{sender: sender}
}

// SendEventNotifications notifies every eligible subscriber of the event's
// organization about the given notice. Returns how many messages went out.
// Safe to call twice for the same event and notice; duplicates are suppressed
// through Redis.
func (ds *DispatchService) SendEventNotifications(eventID uint, notice string) (int, error) {
	var event models.Event
	if err := storage.DB.Unscoped().Preload("Organization").First(&event, eventID).Error; err != nil {
		log.Printf("❌ DISPATCH ERROR: Event %d not found: %v", eventID, err)
		return 0, fmt.Errorf("event not found: %v", err)
	}

	if notice == NoticeDeletion && (event.NotifyOnDeletion == nil || !*event.NotifyOnDeletion) {
		log.Printf("DISPATCH: Event %d has deletion notifications disabled, skipping", eventID)
		return 0, nil
	}

	org := event.Organization
	log.Printf("📣 DISPATCH: Event %d (%s) for organization %d, notice=%s, channel=%s",
		event.ID, event.Title, org.ID, notice, org.NotificationType)

	sent := 0

	var subscriptions []models.Subscription
	if err := storage.DB.Preload("User").
		Where("organization_id = ?", org.ID).
		Find(&subscriptions).Error; err != nil {
		return 0, err
	}
	for _, sub := range subscriptions {
		user := sub.User
		if user.AllowsNotifications != nil && !*user.AllowsNotifications {
			continue
		}
		verdict := ds.verdictFor(&event, sub.NotificationPreference, &user.ID, nil, user.Timezone)
		if !wantsNotice(notice, sub.NotificationPreference, verdict) {
			continue
		}
		recipient := ds.recipientFor(org.NotificationType, user.Email, user.PhoneNumber, user.WhatsAppNumber)
		if recipient == "" {
			log.Printf("DISPATCH: User %d has no %s contact, skipping", user.ID, org.NotificationType)
			continue
		}
		if !ds.claim(event.ID, notice, "user", user.ID) {
			continue
		}
		if err := ds.deliver(&event, notice, org.NotificationType, recipient, &user.ID, nil, verdict, sub.ID, false); err != nil {
			ds.release(event.ID, notice, "user", user.ID)
			continue
		}
		sent++
	}

	var anonSubs []models.AnonymousSubscription
	if err := storage.DB.
		Where("organization_id = ? AND is_verified = ?", org.ID, true).
		Find(&anonSubs).Error; err != nil {
		return sent, err
	}
	for i := range anonSubs {
		anon := &anonSubs[i]
		verdict := ds.verdictFor(&event, anon.NotificationPreference, nil, &anon.ID, anon.Timezone)
		if !wantsNotice(notice, anon.NotificationPreference, verdict) {
			continue
		}
		recipient := ds.recipientFor(org.NotificationType, anon.Email, anon.PhoneNumber, anon.WhatsAppNumber)
		if recipient == "" {
			continue
		}
		if !ds.claim(event.ID, notice, "anon", anon.ID) {
			continue
		}
		if err := ds.deliver(&event, notice, org.NotificationType, recipient, nil, &anon.ID, verdict, anon.ID, true); err != nil {
			ds.release(event.ID, notice, "anon", anon.ID)
			continue
		}
		sent++
	}

	log.Printf("✅ DISPATCH: Event %d notice=%s, %d notifications sent", event.ID, notice, sent)
	return sent, nil
}

// SendTest pushes one message straight through the sender, bypassing
// subscriptions, dedupe and logging.
func (ds *DispatchService) SendTest(msg Message) error {
	return ds.sender.Send(msg)
}

// wantsNotice applies the subscriber's notification preference. Deletion
// notices always go out so nobody shows up to a cancelled event.
func wantsNotice(notice, preference string, verdict *matcher.Verdict) bool {
	if notice == NoticeDeletion {
		return true
	}
	if preference != models.PreferenceMatching {
		return true
	}
	return verdict == nil || verdict.Matched
}

// verdictFor evaluates the subscriber's availability rules against the event.
// Returns nil when the preference doesn't call for matching, or when
// evaluation fails; a failed evaluation notifies rather than silently drops.
func (ds *DispatchService) verdictFor(event *models.Event, preference string, userID, anonID *uint, timezone string) *matcher.Verdict {
	if preference != models.PreferenceMatching {
		return nil
	}

	var rules []models.AvailabilityRule
	query := storage.DB.Where("organization_id = ?", event.OrganizationID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("anonymous_subscription_id = ?", *anonID)
	}
	if err := query.Find(&rules).Error; err != nil {
		log.Printf("❌ DISPATCH ERROR: Loading rules failed: %v", err)
		return nil
	}

	verdict, err := matcher.Evaluate(rules, event.StartDatetime, event.EndDatetime, timezone)
	if err != nil {
		// Bad stored data must not swallow a notification.
		log.Printf("⚠️ DISPATCH: Availability evaluation failed, notifying anyway: %v", err)
		return nil
	}
	return &verdict
}

// recipientFor picks the contact address for the organization's channel.
func (ds *DispatchService) recipientFor(channel, email, phone, whatsapp string) string {
	switch channel {
	case models.ChannelSMS:
		return utils.NormalizePhoneNumber(phone)
	case models.ChannelWhatsApp:
		return utils.NormalizePhoneNumber(whatsapp)
	default:
		return email
	}
}

func dedupeKey(eventID uint, notice, kind string, recipientID uint) string {
	return fmt.Sprintf("dispatch:%d:%s:%s:%d", eventID, notice, kind, recipientID)
}

// claim reserves the (event, notice, recipient) triple in Redis so retries
// and concurrent dispatches never double-send. Without Redis every dispatch
// goes through.
func (ds *DispatchService) claim(eventID uint, notice, kind string, recipientID uint) bool {
	if storage.Redis == nil {
		return true
	}
	ok, err := storage.Redis.SetNX(context.Background(), dedupeKey(eventID, notice, kind, recipientID), "1", 7*24*time.Hour).Result()
	if err != nil {
		log.Printf("⚠️ DISPATCH: Redis claim failed, sending anyway: %v", err)
		return true
	}
	return ok
}

// release frees a dedupe claim after a failed send, so a later retry can
// still reach the recipient.
func (ds *DispatchService) release(eventID uint, notice, kind string, recipientID uint) {
	if storage.Redis == nil {
		return
	}
	storage.Redis.Del(context.Background(), dedupeKey(eventID, notice, kind, recipientID))
}

// deliver composes, sends and logs one notification. Returns the send error,
// if any; the audit row records the failure either way.
func (ds *DispatchService) deliver(event *models.Event, notice, channel, recipient string, userID, anonID *uint, verdict *matcher.Verdict, optOutID uint, anonymous bool) error {
	subject, body := composeMessage(event, notice)
	body += ds.optOutFooter(optOutID, anonymous)

	err := ds.sender.Send(Message{
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		log.Printf("❌ DISPATCH ERROR: Sending to %s failed: %v", recipient, err)
	}

	entry := models.NotificationLog{
		EventID:                 event.ID,
		UserID:                  userID,
		AnonymousSubscriptionID: anonID,
		NotificationType:        channel,
		Notice:                  notice,
		Success:                 err == nil,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if verdict != nil && verdict.Matched {
		entry.Confidence = verdict.Confidence
		if raw, jsonErr := json.Marshal(verdict.ContributingRuleIDs); jsonErr == nil {
			entry.MatchedRules = raw
		}
	}
	ds.recordAttempt(&entry)

	return err
}

// recordAttempt persists the audit row. Best effort; the dispatch outcome
// never depends on it.
func (ds *DispatchService) recordAttempt(entry *models.NotificationLog) {
	if storage.DB == nil {
		return
	}
	if err := storage.DB.Create(entry).Error; err != nil {
		log.Printf("❌ DISPATCH ERROR: Recording notification log failed: %v", err)
	}
}

// optOutFooter appends the per-recipient unsubscribe link every outbound
// message carries.
func (ds *DispatchService) optOutFooter(subscriptionID uint, anonymous bool) string {
	token, err := utils.CreateUnsubscribeToken(subscriptionID, anonymous)
	if err != nil {
		log.Printf("⚠️ DISPATCH: Minting unsubscribe token failed: %v", err)
		return ""
	}
	base := os.Getenv("PUBLIC_BASE_URL")
	if base == "" {
		base = "http://localhost:4000"
	}
	return fmt.Sprintf("\n\nTo stop receiving these notifications: %s/unsubscribe?token=%s", base, token)
}

func composeMessage(event *models.Event, notice string) (subject, body string) {
	when := event.StartDatetime.Format("Mon, 02 Jan 2006 15:04")
	switch notice {
	case NoticeDeletion:
		subject = fmt.Sprintf("Event Cancelled: %s", event.Title)
		body = fmt.Sprintf("The event %q scheduled for %s has been cancelled.", event.Title, when)
	case NoticeReminder:
		subject = fmt.Sprintf("Reminder: %s", event.Title)
		body = fmt.Sprintf("The event %q starts at %s.", event.Title, when)
	default:
		subject = fmt.Sprintf("New Event: %s", event.Title)
		body = fmt.Sprintf("%q is scheduled for %s.", event.Title, when)
		if event.Location != "" {
			body += " Location: " + event.Location + "."
		}
		if event.Description != "" {
			body += "\n\n" + event.Description
		}
	}
	return subject, body
}

// Global dispatch service instance
var Dispatch = NewDispatchService(nil)
