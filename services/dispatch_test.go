package services

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/utils"
)

type failingSender struct{}

func (failingSender) Send(Message) error { return errors.New("channel down") }

type capturingSender struct {
	last Message
}

func (s *capturingSender) Send(msg Message) error {
	s.last = msg
	return nil
}

func testEvent() *models.Event {
	return &models.Event{
		ID:            7,
		Title:         "Game Night",
		StartDatetime: time.Date(2026, time.September, 2, 19, 0, 0, 0, time.UTC),
	}
}

func TestDeliverAppendsUnsubscribeLink(t *testing.T) {
	os.Setenv("SUBSCRIPTION_TOKEN_SECRET", "testsecret")

	sender := &capturingSender{}
	ds := NewDispatchService(sender)

	if err := ds.deliver(testEvent(), NoticeCreation, models.ChannelEmail, "a@example.com", nil, nil, nil, 42, true); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	idx := strings.LastIndex(sender.last.Body, "token=")
	if idx < 0 {
		t.Fatalf("no unsubscribe link in body: %q", sender.last.Body)
	}

	claims, err := utils.ParseUnsubscribeToken(sender.last.Body[idx+len("token="):])
	if err != nil {
		t.Fatalf("embedded token does not verify: %v", err)
	}
	if claims.SubscriptionID != 42 || !claims.Anonymous {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestDeliverReturnsSendError(t *testing.T) {
	os.Setenv("SUBSCRIPTION_TOKEN_SECRET", "testsecret")

	ds := NewDispatchService(failingSender{})
	err := ds.deliver(testEvent(), NoticeCreation, models.ChannelEmail, "a@example.com", nil, nil, nil, 3, false)
	if err == nil {
		t.Fatal("expected the send error to surface, so the dedupe claim can be released")
	}
}

func TestDedupeKeyDistinguishesRecipients(t *testing.T) {
	a := dedupeKey(7, NoticeCreation, "user", 1)
	b := dedupeKey(7, NoticeCreation, "anon", 1)
	c := dedupeKey(7, NoticeDeletion, "user", 1)
	if a == b || a == c {
		t.Errorf("keys must differ per recipient kind and notice: %q %q %q", a, b, c)
	}
	if a != dedupeKey(7, NoticeCreation, "user", 1) {
		t.Error("claim and release must derive the same key")
	}
}
