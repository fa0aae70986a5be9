// Package matcher decides whether a concrete event occurrence falls inside a
// subscriber's recurring availability windows, and with what confidence.
// Everything here is pure date arithmetic: no storage, no shared state, safe
// to call from any number of goroutines.
package matcher

import (
	"fmt"
	"time"

	"github.com/oabuhamdan/event-coordinator/models"
)

// Verdict confidence on top of the rule tiers: "none" when nothing matched.
const (
	ConfidenceSure  = models.ConfidenceSure
	ConfidenceMaybe = models.ConfidenceMaybe
	ConfidenceNone  = "none"
)

// InvalidInputError reports malformed input: an unresolvable timezone, an
// event or rule window that ends before it starts, or an unparseable rule
// time. The evaluation it aborted had no partial effect.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "matcher: invalid input: " + e.Reason
}

// Verdict is the outcome of testing one subscriber's full rule set against
// one event occurrence.
type Verdict struct {
	Matched             bool   `json:"matched"`
	Confidence          string `json:"confidence"`
	ContributingRuleIDs []uint `json:"contributing_rule_ids,omitempty"`
}

// daySegment is the part of an event that falls on a single calendar day in
// the subscriber's zone, in minutes since local midnight. endMin reaches
// 1440 when the segment runs up to the next midnight.
type daySegment struct {
	date     time.Time
	startMin int
	endMin   int
}

// Evaluate tests the event occurrence [start, end) against a subscriber's
// rule set. Rule windows are wall-clock times in the subscriber's zone
// (timezone name; empty means UTC). Occurrences crossing a local midnight
// are split per calendar day and a match on any day counts for the whole
// occurrence. Identical inputs always yield identical verdicts.
func Evaluate(rules []models.AvailabilityRule, start, end time.Time, timezone string) (Verdict, error) {
	verdict := Verdict{Confidence: ConfidenceNone}

	if end.Before(start) {
		return verdict, &InvalidInputError{Reason: "event ends before it starts"}
	}

	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return verdict, &InvalidInputError{Reason: fmt.Sprintf("unresolvable timezone %q", timezone)}
		}
	}

	// Zero-duration occurrences and empty rule sets can never overlap.
	if len(rules) == 0 || start.Equal(end) {
		return verdict, nil
	}

	segments := splitByDay(start.In(loc), end.In(loc), loc)

	for _, rule := range rules {
		overlaps, err := ruleOverlaps(rule, segments)
		if err != nil {
			return Verdict{Confidence: ConfidenceNone}, err
		}
		if !overlaps {
			continue
		}
		verdict.Matched = true
		verdict.ContributingRuleIDs = append(verdict.ContributingRuleIDs, rule.ID)
		if rule.Confidence == models.ConfidenceSure {
			verdict.Confidence = ConfidenceSure
		} else if verdict.Confidence != ConfidenceSure {
			verdict.Confidence = ConfidenceMaybe
		}
	}

	return verdict, nil
}

// AppliesOn reports whether a rule's recurrence selects the given calendar
// day. Only the year, month and day of date matter.
func AppliesOn(rule models.AvailabilityRule, date time.Time) bool {
	switch rule.RecurrenceKind {
	case models.RecurrenceWeekly:
		return int(date.Weekday()) == rule.Weekday
	case models.RecurrenceMonthlyWeekday:
		if int(date.Weekday()) != rule.Weekday {
			return false
		}
		return ordinalMatches(rule.Ordinal, date)
	case models.RecurrenceMonthlyDay:
		return date.Day() == rule.DayOfMonth
	case models.RecurrenceSpecificDate:
		if rule.SpecificDate == nil {
			return false
		}
		ry, rm, rd := rule.SpecificDate.Date()
		dy, dm, dd := date.Date()
		return ry == dy && rm == dm && rd == dd
	}
	return false
}

// ClockMinutes parses an "HH:MM" wall-clock string into minutes since
// midnight.
func ClockMinutes(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// splitByDay cuts [start, end) at each local midnight. Sub-minute parts are
// truncated; rules are minute-granular anyway.
func splitByDay(start, end time.Time, loc *time.Location) []daySegment {
	var segments []daySegment

	cur := start
	for cur.Before(end) {
		midnight := time.Date(cur.Year(), cur.Month(), cur.Day(), 0, 0, 0, 0, loc)
		next := midnight.AddDate(0, 0, 1)

		endMin := 24 * 60
		if end.Before(next) {
			endMin = end.Hour()*60 + end.Minute()
		}

		segments = append(segments, daySegment{
			date:     midnight,
			startMin: cur.Hour()*60 + cur.Minute(),
			endMin:   endMin,
		})
		cur = next
	}

	return segments
}

// ruleOverlaps tests one rule against all day segments. Overlap is strict on
// half-open intervals, so touching endpoints and zero-length windows never
// count.
func ruleOverlaps(rule models.AvailabilityRule, segments []daySegment) (bool, error) {
	ruleStart, err := ClockMinutes(rule.StartTime)
	if err != nil {
		return false, &InvalidInputError{Reason: fmt.Sprintf("rule %d start time %q", rule.ID, rule.StartTime)}
	}
	ruleEnd, err := ClockMinutes(rule.EndTime)
	if err != nil {
		return false, &InvalidInputError{Reason: fmt.Sprintf("rule %d end time %q", rule.ID, rule.EndTime)}
	}
	if ruleEnd < ruleStart {
		return false, &InvalidInputError{Reason: fmt.Sprintf("rule %d window ends before it starts", rule.ID)}
	}
	if ruleEnd == ruleStart {
		// Rejected at creation time; tolerated here as a window that can
		// never overlap.
		return false, nil
	}

	for _, seg := range segments {
		if !AppliesOn(rule, seg.date) {
			continue
		}
		if ruleStart < seg.endMin && seg.startMin < ruleEnd {
			return true, nil
		}
	}
	return false, nil
}

// ordinalMatches counts weekday occurrences by explicit day arithmetic: the
// nth occurrence of a weekday lands on days (n-1)*7+1 .. n*7, and the last
// occurrence is the one with fewer than seven days left in its month.
func ordinalMatches(ordinal string, date time.Time) bool {
	day := date.Day()
	switch ordinal {
	case models.OrdinalFirst:
		return day <= 7
	case models.OrdinalSecond:
		return day > 7 && day <= 14
	case models.OrdinalThird:
		return day > 14 && day <= 21
	case models.OrdinalFourth:
		return day > 21 && day <= 28
	case models.OrdinalLast:
		return day+7 > daysInMonth(date)
	}
	return false
}

func daysInMonth(date time.Time) int {
	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
