package routes

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"github.com/oabuhamdan/event-coordinator/matcher"
	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/services"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

type AvailabilityRuleInput struct {
	RecurrenceKind string `json:"recurrence_kind" validate:"required,oneof=weekly monthly_weekday monthly_day specific_date"`
	Weekday        int    `json:"weekday" validate:"min=0,max=6"`
	Ordinal        string `json:"ordinal" validate:"omitempty,oneof=first second third fourth last"`
	DayOfMonth     int    `json:"day_of_month" validate:"omitempty,min=1,max=31"`
	SpecificDate   string `json:"specific_date"` // YYYY-MM-DD
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	Confidence     string `json:"confidence" validate:"omitempty,oneof=sure maybe"`
}

type SetAvailabilityInput struct {
	OrganizationID          uint                    `json:"organization_id" validate:"required"`
	UserID                  *uint                   `json:"user_id"`
	AnonymousSubscriptionID *uint                   `json:"anonymous_subscription_id"`
	Rules                   []AvailabilityRuleInput `json:"rules" validate:"dive"`
}

// ListAvailability returns a subscriber's rules towards an organization.
func ListAvailability(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("orgID"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	userID := ctx.URLParam("user_id")
	anonID := ctx.URLParam("anonymous_id")
	if userID == "" && anonID == "" {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "user_id or anonymous_id is required.", ctx)
		return
	}

	query := storage.DB.Where("organization_id = ?", orgID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	} else {
		query = query.Where("anonymous_subscription_id = ?", anonID)
	}

	var rules []models.AvailabilityRule
	if err := query.Order("id ASC").Find(&rules).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"rules": rules})
}

// SetAvailability replaces a subscriber's whole rule set for one organization
// in a single transaction. Invalid rules are rejected individually; the valid
// remainder is stored.
func SetAvailability(ctx iris.Context) {
	var input SetAvailabilityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if (input.UserID == nil) == (input.AnonymousSubscriptionID == nil) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request",
			"Exactly one of user_id and anonymous_subscription_id is required.", ctx)
		return
	}

	var rules []models.AvailabilityRule
	var rejected []iris.Map
	for i, in := range input.Rules {
		rule, reason := buildRule(input, in)
		if reason != "" {
			rejected = append(rejected, iris.Map{"index": i, "reason": reason})
			continue
		}
		rules = append(rules, rule)
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		del := tx.Where("organization_id = ?", input.OrganizationID)
		if input.UserID != nil {
			del = del.Where("user_id = ?", *input.UserID)
		} else {
			del = del.Where("anonymous_subscription_id = ?", *input.AnonymousSubscriptionID)
		}
		if err := del.Delete(&models.AvailabilityRule{}).Error; err != nil {
			return err
		}
		if len(rules) == 0 {
			return nil
		}
		return tx.Create(&rules).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.InvalidateAnalyticsCache(input.OrganizationID)

	ctx.JSON(iris.Map{
		"rules":    rules,
		"rejected": rejected,
	})
}

// buildRule validates one rule input and returns the model, or a rejection
// reason.
func buildRule(input SetAvailabilityInput, in AvailabilityRuleInput) (models.AvailabilityRule, string) {
	rule := models.AvailabilityRule{
		OrganizationID:          input.OrganizationID,
		UserID:                  input.UserID,
		AnonymousSubscriptionID: input.AnonymousSubscriptionID,
		RecurrenceKind:          in.RecurrenceKind,
		Weekday:                 in.Weekday,
		Ordinal:                 in.Ordinal,
		DayOfMonth:              in.DayOfMonth,
		StartTime:               in.StartTime,
		EndTime:                 in.EndTime,
		Confidence:              in.Confidence,
	}
	if rule.Confidence == "" {
		rule.Confidence = models.ConfidenceSure
	}

	startMin, err := matcher.ClockMinutes(in.StartTime)
	if err != nil {
		return rule, "unparseable start_time, expected HH:MM"
	}
	endMin, err := matcher.ClockMinutes(in.EndTime)
	if err != nil {
		return rule, "unparseable end_time, expected HH:MM"
	}
	if endMin <= startMin {
		return rule, "end_time must be after start_time"
	}

	switch in.RecurrenceKind {
	case models.RecurrenceMonthlyWeekday:
		if in.Ordinal == "" {
			return rule, "monthly_weekday rules require an ordinal"
		}
	case models.RecurrenceMonthlyDay:
		if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
			return rule, "monthly_day rules require day_of_month between 1 and 31"
		}
	case models.RecurrenceSpecificDate:
		if in.SpecificDate == "" {
			return rule, "specific_date rules require a date"
		}
		date, err := time.Parse("2006-01-02", in.SpecificDate)
		if err != nil {
			return rule, "unparseable specific_date, expected YYYY-MM-DD"
		}
		rule.SpecificDate = &date
	}

	return rule, ""
}

// PreviewMatch evaluates a hypothetical event against a subscriber's stored
// rules without touching any event data.
func PreviewMatch(ctx iris.Context) {
	var input struct {
		OrganizationID          uint      `json:"organization_id" validate:"required"`
		UserID                  *uint     `json:"user_id"`
		AnonymousSubscriptionID *uint     `json:"anonymous_subscription_id"`
		StartDatetime           time.Time `json:"start_datetime" validate:"required"`
		EndDatetime             time.Time `json:"end_datetime" validate:"required"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if (input.UserID == nil) == (input.AnonymousSubscriptionID == nil) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request",
			"Exactly one of user_id and anonymous_subscription_id is required.", ctx)
		return
	}

	var timezone string
	query := storage.DB.Where("organization_id = ?", input.OrganizationID)
	if input.UserID != nil {
		var user models.User
		if err := storage.DB.First(&user, *input.UserID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return
		}
		timezone = user.Timezone
		query = query.Where("user_id = ?", *input.UserID)
	} else {
		var anon models.AnonymousSubscription
		if err := storage.DB.First(&anon, *input.AnonymousSubscriptionID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return
		}
		timezone = anon.Timezone
		query = query.Where("anonymous_subscription_id = ?", *input.AnonymousSubscriptionID)
	}

	var rules []models.AvailabilityRule
	if err := query.Find(&rules).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	verdict, err := matcher.Evaluate(rules, input.StartDatetime, input.EndDatetime, timezone)
	if err != nil {
		if _, ok := err.(*matcher.InvalidInputError); ok {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(verdict)
}
