package services

import (
	"testing"
	"time"

	"github.com/oabuhamdan/event-coordinator/models"
)

func ptrUint(v uint) *uint { return &v }

func weeklyRule(id uint, userID uint, name string, weekday int, start, end, confidence string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:             id,
		OrganizationID: 1,
		UserID:         ptrUint(userID),
		User:           &models.User{ID: userID, FirstName: name},
		RecurrenceKind: models.RecurrenceWeekly,
		Weekday:        weekday,
		StartTime:      start,
		EndTime:        end,
		Confidence:     confidence,
	}
}

func TestCollectSubscriberSlots(t *testing.T) {
	// 2026-09-02 is a Wednesday
	wednesday := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)

	rules := []models.AvailabilityRule{
		weeklyRule(1, 10, "Lina", 3, "09:00", "12:00", models.ConfidenceSure),
		weeklyRule(2, 11, "Omar", 5, "09:00", "12:00", models.ConfidenceSure), // Friday, filtered out
		weeklyRule(3, 12, "Rana", 3, "14:00", "14:00", models.ConfidenceSure), // zero width, filtered out
		weeklyRule(4, 13, "Sami", 3, "bad", "12:00", models.ConfidenceMaybe),  // unparseable, filtered out
	}

	slots := collectSubscriberSlots(rules, wednesday)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0].who.Name != "Lina" || slots[0].startMin != 540 || slots[0].endMin != 720 {
		t.Errorf("unexpected slot: %+v", slots[0])
	}
}

func TestCollectSubscriberSlotsSkipsOrphanRules(t *testing.T) {
	day := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)
	rules := []models.AvailabilityRule{
		{
			ID:             1,
			RecurrenceKind: models.RecurrenceWeekly,
			Weekday:        3,
			StartTime:      "09:00",
			EndTime:        "10:00",
			Confidence:     models.ConfidenceSure,
			// no owner preloaded
		},
	}
	if slots := collectSubscriberSlots(rules, day); len(slots) != 0 {
		t.Fatalf("expected no slots for ownerless rule, got %d", len(slots))
	}
}

func TestBuildPeriodsSplitsAtBoundaries(t *testing.T) {
	day := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)

	lina := SubscriberInfo{Kind: "registered", ID: 10, Name: "Lina"}
	omar := SubscriberInfo{Kind: "registered", ID: 11, Name: "Omar"}

	slots := []subscriberSlot{
		{who: lina, startMin: 9 * 60, endMin: 12 * 60, confidence: models.ConfidenceSure},
		{who: omar, startMin: 10 * 60, endMin: 13 * 60, confidence: models.ConfidenceMaybe},
	}

	periods := buildPeriods(day, slots)
	if len(periods) != 3 {
		t.Fatalf("expected 3 periods, got %d: %+v", len(periods), periods)
	}

	// 09:00-10:00 only Lina, 10:00-12:00 both, 12:00-13:00 only Omar.
	checks := []struct {
		start, end string
		sure       int
		maybe      int
	}{
		{"09:00", "10:00", 1, 0},
		{"10:00", "12:00", 1, 1},
		{"12:00", "13:00", 0, 1},
	}
	for i, c := range checks {
		p := periods[i]
		if p.StartTime != c.start || p.EndTime != c.end {
			t.Errorf("period %d: got %s-%s, want %s-%s", i, p.StartTime, p.EndTime, c.start, c.end)
		}
		if len(p.Sure) != c.sure || len(p.Maybe) != c.maybe {
			t.Errorf("period %d: got %d sure / %d maybe, want %d / %d",
				i, len(p.Sure), len(p.Maybe), c.sure, c.maybe)
		}
	}
}

func TestBuildPeriodsDeduplicatesSubscriber(t *testing.T) {
	day := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)
	lina := SubscriberInfo{Kind: "registered", ID: 10, Name: "Lina"}

	// Same subscriber twice over the same window: a maybe rule and a sure
	// rule. She must appear once, as sure.
	slots := []subscriberSlot{
		{who: lina, startMin: 9 * 60, endMin: 11 * 60, confidence: models.ConfidenceMaybe},
		{who: lina, startMin: 9 * 60, endMin: 11 * 60, confidence: models.ConfidenceSure},
	}

	periods := buildPeriods(day, slots)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	if len(periods[0].Sure) != 1 || len(periods[0].Maybe) != 0 {
		t.Errorf("expected one sure entry, got %d sure / %d maybe",
			len(periods[0].Sure), len(periods[0].Maybe))
	}
}

func TestBestSlotsRanking(t *testing.T) {
	a := SubscriberInfo{Kind: "registered", ID: 1, Name: "A"}
	b := SubscriberInfo{Kind: "registered", ID: 2, Name: "B"}

	periods := []TimePeriod{
		{Date: "2026-09-02", StartTime: "09:00", EndTime: "10:00", Sure: []SubscriberInfo{a}, Maybe: []SubscriberInfo{}},
		{Date: "2026-09-03", StartTime: "09:00", EndTime: "10:00", Sure: []SubscriberInfo{a, b}, Maybe: []SubscriberInfo{}},
		{Date: "2026-09-04", StartTime: "09:00", EndTime: "10:00", Sure: []SubscriberInfo{a}, Maybe: []SubscriberInfo{b}},
	}

	top := bestSlots(periods, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(top))
	}
	if top[0].Date != "2026-09-03" {
		t.Errorf("expected two-sure slot first, got %s", top[0].Date)
	}
	if top[1].Date != "2026-09-04" {
		t.Errorf("expected sure+maybe slot second, got %s", top[1].Date)
	}
}

func TestWantsNotice(t *testing.T) {
	if !wantsNotice(NoticeDeletion, models.PreferenceMatching, nil) {
		t.Error("deletion notices must always go out")
	}
	if !wantsNotice(NoticeCreation, models.PreferenceAll, nil) {
		t.Error("preference all must always notify")
	}
	if !wantsNotice(NoticeCreation, models.PreferenceMatching, nil) {
		t.Error("a missing verdict must fall back to notifying")
	}
}

func TestComposeMessage(t *testing.T) {
	event := &models.Event{
		Title:         "Board Games Night",
		Location:      "Community Hall",
		StartDatetime: time.Date(2026, time.September, 2, 19, 0, 0, 0, time.UTC),
	}

	subject, body := composeMessage(event, NoticeCreation)
	if subject != "New Event: Board Games Night" {
		t.Errorf("unexpected subject: %s", subject)
	}
	if body == "" {
		t.Error("empty body")
	}

	subject, _ = composeMessage(event, NoticeDeletion)
	if subject != "Event Cancelled: Board Games Night" {
		t.Errorf("unexpected cancellation subject: %s", subject)
	}
}
