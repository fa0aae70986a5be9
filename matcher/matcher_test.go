package matcher

import (
	"reflect"
	"testing"
	"time"

	"github.com/oabuhamdan/event-coordinator/models"
)

func weeklyRule(id uint, weekday int, start, end, confidence string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:             id,
		RecurrenceKind: models.RecurrenceWeekly,
		Weekday:        weekday,
		StartTime:      start,
		EndTime:        end,
		Confidence:     confidence,
	}
}

func monthlyRule(id uint, weekday int, ordinal, start, end, confidence string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:             id,
		RecurrenceKind: models.RecurrenceMonthlyWeekday,
		Weekday:        weekday,
		Ordinal:        ordinal,
		StartTime:      start,
		EndTime:        end,
		Confidence:     confidence,
	}
}

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestEvaluateEmptyRuleSet(t *testing.T) {
	verdict, err := Evaluate(nil, utc(2026, time.September, 2, 14, 0), utc(2026, time.September, 2, 15, 0), "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Matched || verdict.Confidence != ConfidenceNone || len(verdict.ContributingRuleIDs) != 0 {
		t.Fatalf("empty rule set must not match, got %+v", verdict)
	}
}

func TestEvaluateWeekly(t *testing.T) {
	// 2026-09-02 is a Wednesday (weekday 3).
	rules := []models.AvailabilityRule{weeklyRule(1, 3, "14:00", "15:00", models.ConfidenceSure)}

	verdict, err := Evaluate(rules, utc(2026, time.September, 2, 14, 30), utc(2026, time.September, 2, 14, 45), "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Matched || verdict.Confidence != ConfidenceSure {
		t.Fatalf("expected sure match on Wednesday 14:30-14:45, got %+v", verdict)
	}
	if !reflect.DeepEqual(verdict.ContributingRuleIDs, []uint{1}) {
		t.Fatalf("expected rule 1 to contribute, got %v", verdict.ContributingRuleIDs)
	}

	// Tuesday the day before: wrong weekday.
	verdict, _ = Evaluate(rules, utc(2026, time.September, 1, 14, 30), utc(2026, time.September, 1, 14, 45), "UTC")
	if verdict.Matched {
		t.Fatalf("Tuesday event must not match a Wednesday rule, got %+v", verdict)
	}

	// Same Wednesday but 15:00-16:00: touching endpoints, no overlap.
	verdict, _ = Evaluate(rules, utc(2026, time.September, 2, 15, 0), utc(2026, time.September, 2, 16, 0), "UTC")
	if verdict.Matched {
		t.Fatalf("15:00-16:00 must not overlap a window ending at 15:00, got %+v", verdict)
	}
}

func TestEvaluateTimezoneConversion(t *testing.T) {
	// 18:00 UTC on 2026-09-02 is 14:00 in New York (EDT, UTC-4).
	rules := []models.AvailabilityRule{weeklyRule(7, 3, "14:00", "15:00", models.ConfidenceSure)}

	verdict, err := Evaluate(rules, utc(2026, time.September, 2, 18, 0), utc(2026, time.September, 2, 19, 0), "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Matched {
		t.Fatalf("expected match after converting into subscriber zone, got %+v", verdict)
	}

	// Same instants in UTC are 18:00-19:00, outside the window.
	verdict, _ = Evaluate(rules, utc(2026, time.September, 2, 18, 0), utc(2026, time.September, 2, 19, 0), "UTC")
	if verdict.Matched {
		t.Fatalf("UTC subscriber must not match, got %+v", verdict)
	}
}

func TestEvaluateMonthlyOrdinal(t *testing.T) {
	// September 2026: first Monday is the 7th, second Monday the 14th.
	rules := []models.AvailabilityRule{monthlyRule(2, 1, models.OrdinalFirst, "10:00", "11:00", models.ConfidenceMaybe)}

	verdict, err := Evaluate(rules, utc(2026, time.September, 7, 10, 30), utc(2026, time.September, 7, 10, 45), "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Matched || verdict.Confidence != ConfidenceMaybe {
		t.Fatalf("expected maybe match on first Monday, got %+v", verdict)
	}

	verdict, _ = Evaluate(rules, utc(2026, time.September, 14, 10, 30), utc(2026, time.September, 14, 10, 45), "UTC")
	if verdict.Matched {
		t.Fatalf("second Monday must not match a first-Monday rule, got %+v", verdict)
	}
}

func TestEvaluateMonthlyLastIsNotFourth(t *testing.T) {
	// May 2026 has five Fridays: 1, 8, 15, 22, 29. Last is the 29th.
	rules := []models.AvailabilityRule{monthlyRule(3, 5, models.OrdinalLast, "09:00", "17:00", models.ConfidenceSure)}

	verdict, _ := Evaluate(rules, utc(2026, time.May, 29, 12, 0), utc(2026, time.May, 29, 13, 0), "UTC")
	if !verdict.Matched {
		t.Fatalf("expected match on the fifth and last Friday, got %+v", verdict)
	}

	verdict, _ = Evaluate(rules, utc(2026, time.May, 22, 12, 0), utc(2026, time.May, 22, 13, 0), "UTC")
	if verdict.Matched {
		t.Fatalf("fourth Friday is not the last Friday of May 2026, got %+v", verdict)
	}

	// February 2026: last Friday (the 27th) is also the fourth.
	verdict, _ = Evaluate(rules, utc(2026, time.February, 27, 12, 0), utc(2026, time.February, 27, 13, 0), "UTC")
	if !verdict.Matched {
		t.Fatalf("expected match on the last Friday of February, got %+v", verdict)
	}
}

func TestEvaluateMonthlyDayOfMonth(t *testing.T) {
	rules := []models.AvailabilityRule{{
		ID:             9,
		RecurrenceKind: models.RecurrenceMonthlyDay,
		DayOfMonth:     15,
		StartTime:      "09:00",
		EndTime:        "17:00",
		Confidence:     models.ConfidenceSure,
	}}

	verdict, err := Evaluate(rules, utc(2026, time.September, 15, 10, 0), utc(2026, time.September, 15, 11, 0), "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Matched {
		t.Fatalf("expected match on the 15th, got %+v", verdict)
	}

	// Recurs across months.
	verdict, _ = Evaluate(rules, utc(2026, time.October, 15, 10, 0), utc(2026, time.October, 15, 11, 0), "UTC")
	if !verdict.Matched {
		t.Fatalf("expected match on the 15th of the next month, got %+v", verdict)
	}

	verdict, _ = Evaluate(rules, utc(2026, time.September, 16, 10, 0), utc(2026, time.September, 16, 11, 0), "UTC")
	if verdict.Matched {
		t.Fatalf("the 16th must not match a day-15 rule, got %+v", verdict)
	}
}

func TestEvaluateSpecificDate(t *testing.T) {
	date := time.Date(2026, time.December, 24, 0, 0, 0, 0, time.UTC)
	rules := []models.AvailabilityRule{{
		ID:             4,
		RecurrenceKind: models.RecurrenceSpecificDate,
		SpecificDate:   &date,
		StartTime:      "18:00",
		EndTime:        "23:00",
		Confidence:     models.ConfidenceSure,
	}}

	verdict, _ := Evaluate(rules, utc(2026, time.December, 24, 19, 0), utc(2026, time.December, 24, 20, 0), "UTC")
	if !verdict.Matched {
		t.Fatalf("expected match on the declared date, got %+v", verdict)
	}

	verdict, _ = Evaluate(rules, utc(2026, time.December, 25, 19, 0), utc(2026, time.December, 25, 20, 0), "UTC")
	if verdict.Matched {
		t.Fatalf("next day must not match, got %+v", verdict)
	}
}

func TestEvaluateMidnightSpanningEvent(t *testing.T) {
	// 2026-09-02 23:30 to 2026-09-03 00:30 touches Wednesday and Thursday.
	start := utc(2026, time.September, 2, 23, 30)
	end := utc(2026, time.September, 3, 0, 30)

	thursdayRule := []models.AvailabilityRule{weeklyRule(5, 4, "00:00", "01:00", models.ConfidenceSure)}
	verdict, err := Evaluate(thursdayRule, start, end, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Matched {
		t.Fatalf("expected the Thursday segment to match, got %+v", verdict)
	}

	wednesdayRule := []models.AvailabilityRule{weeklyRule(6, 3, "23:00", "23:59", models.ConfidenceMaybe)}
	verdict, _ = Evaluate(wednesdayRule, start, end, "UTC")
	if !verdict.Matched {
		t.Fatalf("expected the Wednesday segment to match, got %+v", verdict)
	}

	fridayRule := []models.AvailabilityRule{weeklyRule(8, 5, "00:00", "23:59", models.ConfidenceSure)}
	verdict, _ = Evaluate(fridayRule, start, end, "UTC")
	if verdict.Matched {
		t.Fatalf("Friday rule must not match a Wed/Thu event, got %+v", verdict)
	}
}

func TestEvaluateSureDominatesMaybe(t *testing.T) {
	rules := []models.AvailabilityRule{
		weeklyRule(1, 3, "13:00", "18:00", models.ConfidenceMaybe),
		weeklyRule(2, 3, "14:00", "15:00", models.ConfidenceSure),
		weeklyRule(3, 3, "14:30", "16:00", models.ConfidenceMaybe),
	}

	verdict, err := Evaluate(rules, utc(2026, time.September, 2, 14, 30), utc(2026, time.September, 2, 14, 45), "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Confidence != ConfidenceSure {
		t.Fatalf("one sure rule must dominate, got %+v", verdict)
	}
	if len(verdict.ContributingRuleIDs) != 3 {
		t.Fatalf("all three overlapping rules should contribute, got %v", verdict.ContributingRuleIDs)
	}
}

func TestEvaluateZeroDurationEvent(t *testing.T) {
	rules := []models.AvailabilityRule{weeklyRule(1, 3, "00:00", "23:59", models.ConfidenceSure)}
	at := utc(2026, time.September, 2, 14, 0)

	verdict, err := Evaluate(rules, at, at, "UTC")
	if err != nil {
		t.Fatalf("zero-duration event is not an error: %v", err)
	}
	if verdict.Matched {
		t.Fatalf("zero-duration event must never match, got %+v", verdict)
	}
}

func TestEvaluateZeroWidthRule(t *testing.T) {
	rules := []models.AvailabilityRule{weeklyRule(1, 3, "14:00", "14:00", models.ConfidenceSure)}

	verdict, err := Evaluate(rules, utc(2026, time.September, 2, 13, 0), utc(2026, time.September, 2, 15, 0), "UTC")
	if err != nil {
		t.Fatalf("zero-width rule must be tolerated, got error: %v", err)
	}
	if verdict.Matched {
		t.Fatalf("zero-width rule must never overlap, got %+v", verdict)
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	rules := []models.AvailabilityRule{weeklyRule(1, 3, "14:00", "15:00", models.ConfidenceSure)}

	_, err := Evaluate(rules, utc(2026, time.September, 2, 15, 0), utc(2026, time.September, 2, 14, 0), "UTC")
	if _, ok := err.(*InvalidInputError); !ok {
		t.Fatalf("event ending before start must fail, got %v", err)
	}

	_, err = Evaluate(rules, utc(2026, time.September, 2, 14, 0), utc(2026, time.September, 2, 15, 0), "Mars/Olympus_Mons")
	if _, ok := err.(*InvalidInputError); !ok {
		t.Fatalf("bad timezone must fail, got %v", err)
	}

	badWindow := []models.AvailabilityRule{weeklyRule(2, 3, "15:00", "14:00", models.ConfidenceSure)}
	_, err = Evaluate(badWindow, utc(2026, time.September, 2, 14, 0), utc(2026, time.September, 2, 15, 0), "UTC")
	if _, ok := err.(*InvalidInputError); !ok {
		t.Fatalf("rule window ending before start must fail, got %v", err)
	}

	badClock := []models.AvailabilityRule{weeklyRule(3, 3, "25:99", "26:00", models.ConfidenceSure)}
	_, err = Evaluate(badClock, utc(2026, time.September, 2, 14, 0), utc(2026, time.September, 2, 15, 0), "UTC")
	if _, ok := err.(*InvalidInputError); !ok {
		t.Fatalf("unparseable rule time must fail, got %v", err)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	rules := []models.AvailabilityRule{
		weeklyRule(1, 3, "14:00", "15:00", models.ConfidenceSure),
		monthlyRule(2, 1, models.OrdinalLast, "10:00", "11:00", models.ConfidenceMaybe),
	}
	start := utc(2026, time.September, 2, 14, 30)
	end := utc(2026, time.September, 2, 14, 45)

	first, err1 := Evaluate(rules, start, end, "UTC")
	second, err2 := Evaluate(rules, start, end, "UTC")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs must yield identical verdicts: %+v vs %+v", first, second)
	}
}

func TestAppliesOnOrdinalBuckets(t *testing.T) {
	// September 2026 Mondays: 7, 14, 21, 28. No fifth Monday.
	cases := []struct {
		day     int
		ordinal string
		want    bool
	}{
		{7, models.OrdinalFirst, true},
		{14, models.OrdinalSecond, true},
		{21, models.OrdinalThird, true},
		{28, models.OrdinalFourth, true},
		{28, models.OrdinalLast, true},
		{21, models.OrdinalLast, false},
		{7, models.OrdinalSecond, false},
	}
	for _, tc := range cases {
		rule := monthlyRule(1, 1, tc.ordinal, "09:00", "10:00", models.ConfidenceSure)
		date := time.Date(2026, time.September, tc.day, 0, 0, 0, 0, time.UTC)
		if got := AppliesOn(rule, date); got != tc.want {
			t.Errorf("AppliesOn(%s, Sep %d) = %v, want %v", tc.ordinal, tc.day, got, tc.want)
		}
	}
}
