package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/oabuhamdan/event-coordinator/matcher"
	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/storage"
)

// SubscriberInfo identifies a subscriber inside an analytics result.
type SubscriberInfo struct {
	Kind string `json:"kind"` // registered | anonymous
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// TimePeriod is one candidate slot on one day, with the subscribers who
// declared themselves available for the whole period, grouped by confidence.
type TimePeriod struct {
	Date      string           `json:"date"` // YYYY-MM-DD
	StartTime string           `json:"start_time"`
	EndTime   string           `json:"end_time"`
	Sure      []SubscriberInfo `json:"sure"`
	Maybe     []SubscriberInfo `json:"maybe"`
}

// AvailabilityAnalytics aggregates subscriber availability over a date range
// so organizers can pick the best time for the next event.
type AvailabilityAnalytics struct {
	OrganizationID   uint         `json:"organization_id"`
	RangeStart       string       `json:"range_start"`
	RangeEnd         string       `json:"range_end"`
	TotalSubscribers int          `json:"total_subscribers"`
	Periods          []TimePeriod `json:"periods"`
	BestSlots        []TimePeriod `json:"best_slots"`
}

// subscriberSlot is one resolved availability window on a concrete day, in
// minutes since midnight of the subscriber's wall clock.
type subscriberSlot struct {
	who        SubscriberInfo
	startMin   int
	endMin     int
	confidence string
}

const analyticsCacheTTL = 10 * time.Minute

// GetAvailabilityAnalytics computes (or serves from cache) the availability
// breakdown for an organization between two dates, inclusive.
func GetAvailabilityAnalytics(orgID uint, start, end time.Time) (*AvailabilityAnalytics, error) {
	cacheKey := fmt.Sprintf("analytics:%d:%s:%s",
		orgID, start.Format("2006-01-02"), end.Format("2006-01-02"))

	if storage.Redis != nil {
		if raw, err := storage.Redis.Get(context.Background(), cacheKey).Result(); err == nil {
			var cached AvailabilityAnalytics
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	var rules []models.AvailabilityRule
	if err := storage.DB.Preload("User").Preload("AnonymousSubscription").
		Where("organization_id = ?", orgID).
		Find(&rules).Error; err != nil {
		return nil, err
	}

	analytics := &AvailabilityAnalytics{
		OrganizationID: orgID,
		RangeStart:     start.Format("2006-01-02"),
		RangeEnd:       end.Format("2006-01-02"),
		Periods:        []TimePeriod{},
		BestSlots:      []TimePeriod{},
	}

	subscribers := map[string]bool{}
	for day := dateOnly(start); !day.After(dateOnly(end)); day = day.AddDate(0, 0, 1) {
		slots := collectSubscriberSlots(rules, day)
		for _, s := range slots {
			subscribers[fmt.Sprintf("%s:%d", s.who.Kind, s.who.ID)] = true
		}
		analytics.Periods = append(analytics.Periods, buildPeriods(day, slots)...)
	}
	analytics.TotalSubscribers = len(subscribers)
	analytics.BestSlots = bestSlots(analytics.Periods, 5)

	if storage.Redis != nil {
		if raw, err := json.Marshal(analytics); err == nil {
			if err := storage.Redis.Set(context.Background(), cacheKey, raw, analyticsCacheTTL).Err(); err != nil {
				log.Printf("⚠️ ANALYTICS: Caching failed: %v", err)
			}
		}
	}

	return analytics, nil
}

// InvalidateAnalyticsCache drops cached analytics for an organization after
// its availability data changes.
func InvalidateAnalyticsCache(orgID uint) {
	if storage.Redis == nil {
		return
	}
	ctx := context.Background()
	keys, err := storage.Redis.Keys(ctx, fmt.Sprintf("analytics:%d:*", orgID)).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	storage.Redis.Del(ctx, keys...)
}

// collectSubscriberSlots resolves which rules apply on the given day and
// turns them into concrete minute windows. Rules whose owner record is gone
// are skipped.
func collectSubscriberSlots(rules []models.AvailabilityRule, day time.Time) []subscriberSlot {
	var slots []subscriberSlot
	for i := range rules {
		rule := &rules[i]
		if !matcher.AppliesOn(*rule, day) {
			continue
		}
		startMin, err := matcher.ClockMinutes(rule.StartTime)
		if err != nil {
			continue
		}
		endMin, err := matcher.ClockMinutes(rule.EndTime)
		if err != nil || endMin <= startMin {
			continue
		}

		var who SubscriberInfo
		switch {
		case rule.UserID != nil && rule.User != nil:
			who = SubscriberInfo{
				Kind: "registered",
				ID:   *rule.UserID,
				Name: strings.TrimSpace(rule.User.FirstName + " " + rule.User.LastName),
			}
		case rule.AnonymousSubscriptionID != nil && rule.AnonymousSubscription != nil:
			who = SubscriberInfo{
				Kind: "anonymous",
				ID:   *rule.AnonymousSubscriptionID,
				Name: rule.AnonymousSubscription.Name,
			}
		default:
			continue
		}

		slots = append(slots, subscriberSlot{
			who:        who,
			startMin:   startMin,
			endMin:     endMin,
			confidence: rule.Confidence,
		})
	}
	return slots
}

// buildPeriods splits the day at every slot boundary and, for each resulting
// period, lists the subscribers whose slot covers it fully. Periods nobody
// covers are dropped.
func buildPeriods(day time.Time, slots []subscriberSlot) []TimePeriod {
	if len(slots) == 0 {
		return nil
	}

	boundarySet := map[int]bool{}
	for _, s := range slots {
		boundarySet[s.startMin] = true
		boundarySet[s.endMin] = true
	}
	boundaries := make([]int, 0, len(boundarySet))
	for b := range boundarySet {
		boundaries = append(boundaries, b)
	}
	sort.Ints(boundaries)

	var periods []TimePeriod
	for i := 0; i < len(boundaries)-1; i++ {
		periodStart, periodEnd := boundaries[i], boundaries[i+1]

		period := TimePeriod{
			Date:      day.Format("2006-01-02"),
			StartTime: minutesToClock(periodStart),
			EndTime:   minutesToClock(periodEnd),
			Sure:      []SubscriberInfo{},
			Maybe:     []SubscriberInfo{},
		}

		// Deduplicate: a subscriber with several overlapping rules counts
		// once, at their strongest confidence.
		seen := map[string]string{}
		for _, s := range slots {
			if s.startMin > periodStart || s.endMin < periodEnd {
				continue
			}
			key := fmt.Sprintf("%s:%d", s.who.Kind, s.who.ID)
			if prev, ok := seen[key]; ok && (prev == models.ConfidenceSure || prev == s.confidence) {
				continue
			}
			seen[key] = s.confidence
		}
		for _, s := range slots {
			key := fmt.Sprintf("%s:%d", s.who.Kind, s.who.ID)
			conf, ok := seen[key]
			if !ok {
				continue
			}
			delete(seen, key)
			if conf == models.ConfidenceSure {
				period.Sure = append(period.Sure, s.who)
			} else {
				period.Maybe = append(period.Maybe, s.who)
			}
		}

		if len(period.Sure) > 0 || len(period.Maybe) > 0 {
			periods = append(periods, period)
		}
	}
	return periods
}

// bestSlots ranks periods by sure count, then maybe count, then chronology.
func bestSlots(periods []TimePeriod, limit int) []TimePeriod {
	ranked := make([]TimePeriod, len(periods))
	copy(ranked, periods)
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(ranked[i].Sure) != len(ranked[j].Sure) {
			return len(ranked[i].Sure) > len(ranked[j].Sure)
		}
		return len(ranked[i].Maybe) > len(ranked[j].Maybe)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func minutesToClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
