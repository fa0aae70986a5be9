package routes

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/oabuhamdan/event-coordinator/matcher"
	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/services"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

type EventInput struct {
	OrganizationID    uint      `json:"organization_id" validate:"required"`
	Title             string    `json:"title" validate:"required,max=256"`
	Description       string    `json:"description"`
	StartDatetime     time.Time `json:"start_datetime" validate:"required"`
	EndDatetime       time.Time `json:"end_datetime" validate:"required"`
	Timezone          string    `json:"timezone"`
	Location          string    `json:"location"`
	NotifyOnCreation  *bool     `json:"notify_on_creation"`
	NotifyHoursBefore int       `json:"notify_hours_before" validate:"omitempty,min=1,max=336"`
	NotifyOnDeletion  *bool     `json:"notify_on_deletion"`
}

// CreateEvent publishes a new event and, unless disabled, notifies the
// organization's subscribers in the background.
func CreateEvent(ctx iris.Context) {
	var input EventInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !input.EndDatetime.After(input.StartDatetime) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Event must end after it starts.", ctx)
		return
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Unknown timezone.", ctx)
			return
		}
	}

	var organization models.Organization
	if err := storage.DB.First(&organization, input.OrganizationID).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Organization does not exist.", ctx)
		return
	}

	event := models.Event{
		OrganizationID:    input.OrganizationID,
		Title:             input.Title,
		Slug:              uniqueEventSlug(input.OrganizationID, input.Title),
		Description:       input.Description,
		StartDatetime:     input.StartDatetime,
		EndDatetime:       input.EndDatetime,
		Timezone:          input.Timezone,
		Location:          input.Location,
		NotifyOnCreation:  input.NotifyOnCreation,
		NotifyHoursBefore: input.NotifyHoursBefore,
		NotifyOnDeletion:  input.NotifyOnDeletion,
		IsActive:          true,
	}

	if err := storage.DB.Create(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if event.NotifyOnCreation == nil || *event.NotifyOnCreation {
		go func(id uint) {
			if _, err := services.Dispatch.SendEventNotifications(id, services.NoticeCreation); err != nil {
				log.Printf("❌ EVENT: Creation dispatch for event %d failed: %v", id, err)
			}
		}(event.ID)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(event)
}

// uniqueEventSlug derives a slug from the title, suffixing a counter when the
// organization already used it.
func uniqueEventSlug(orgID uint, title string) string {
	base := utils.Slugify(title)
	if base == "" {
		base = "event"
	}

	slug := base
	for counter := 1; ; counter++ {
		var count int64
		storage.DB.Model(&models.Event{}).Unscoped().
			Where("organization_id = ? AND slug = ?", orgID, slug).
			Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

// GetEvent returns one event with its responses.
func GetEvent(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	var event models.Event
	if err := storage.DB.Preload("Organization").Preload("Responses").First(&event, eventID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(event)
}

// GetOrganizationEvents lists an organization's events. Supports
// ?when=upcoming|past and, for a subscriber, ?filter=matching with
// ?user_id= or ?anonymous_id= to annotate each event with their availability
// verdict.
func GetOrganizationEvents(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	page, perPage := utils.PageParams(ctx)
	query := storage.DB.Model(&models.Event{}).Where("organization_id = ?", orgID)

	switch ctx.URLParam("when") {
	case "upcoming":
		query = query.Where("start_datetime > ?", time.Now())
	case "past":
		query = query.Where("start_datetime <= ?", time.Now())
	}

	if ctx.URLParam("filter") != "matching" {
		var total int64
		query.Count(&total)

		var events []models.Event
		if err := query.Order("start_datetime ASC").
			Offset((page - 1) * perPage).Limit(perPage).
			Find(&events).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		utils.JSONPage(ctx, events, page, perPage, total)
		return
	}

	rules, timezone, ok := subscriberRules(ctx, uint(orgID))
	if !ok {
		return
	}

	// Matching is evaluated over the whole filtered set before paginating, so
	// every page is full and the total reflects the matched count.
	var events []models.Event
	if err := query.Order("start_datetime ASC").Find(&events).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	type annotatedEvent struct {
		models.Event
		Verdict matcher.Verdict `json:"verdict"`
	}
	annotated := make([]annotatedEvent, 0, len(events))
	for _, event := range events {
		verdict, err := matcher.Evaluate(rules, event.StartDatetime, event.EndDatetime, timezone)
		if err != nil {
			log.Printf("⚠️ EVENT: Verdict for event %d failed: %v", event.ID, err)
			verdict = matcher.Verdict{Confidence: matcher.ConfidenceNone}
		}
		if !verdict.Matched {
			continue
		}
		annotated = append(annotated, annotatedEvent{Event: event, Verdict: verdict})
	}

	lo, hi := pageBounds(page, perPage, len(annotated))
	utils.JSONPage(ctx, annotated[lo:hi], page, perPage, int64(len(annotated)))
}

// pageBounds clamps a page window to a slice of length n.
func pageBounds(page, perPage, n int) (lo, hi int) {
	lo = (page - 1) * perPage
	if lo > n {
		lo = n
	}
	hi = lo + perPage
	if hi > n {
		hi = n
	}
	return lo, hi
}

// subscriberRules loads the availability rules and timezone for the
// subscriber identified by ?user_id= or ?anonymous_id=. Writes the error
// response itself when the parameters are unusable.
func subscriberRules(ctx iris.Context, orgID uint) ([]models.AvailabilityRule, string, bool) {
	var rules []models.AvailabilityRule
	var timezone string

	if v := ctx.URLParam("user_id"); v != "" {
		userID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid user_id.", ctx)
			return nil, "", false
		}
		var user models.User
		if err := storage.DB.First(&user, userID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return nil, "", false
		}
		timezone = user.Timezone
		storage.DB.Where("organization_id = ? AND user_id = ?", orgID, userID).Find(&rules)
		return rules, timezone, true
	}

	if v := ctx.URLParam("anonymous_id"); v != "" {
		anonID, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid anonymous_id.", ctx)
			return nil, "", false
		}
		var anon models.AnonymousSubscription
		if err := storage.DB.First(&anon, anonID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return nil, "", false
		}
		timezone = anon.Timezone
		storage.DB.Where("organization_id = ? AND anonymous_subscription_id = ?", orgID, anonID).Find(&rules)
		return rules, timezone, true
	}

	utils.CreateError(iris.StatusBadRequest, "Bad Request",
		"filter=matching requires user_id or anonymous_id.", ctx)
	return nil, "", false
}

// UpdateEvent patches an event's descriptive fields. Schedule changes are
// not allowed once creation notifications went out; cancel and recreate.
func UpdateEvent(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	var event models.Event
	if err := storage.DB.First(&event, eventID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input struct {
		Title             string `json:"title"`
		Description       string `json:"description"`
		Location          string `json:"location"`
		NotifyHoursBefore int    `json:"notify_hours_before" validate:"omitempty,min=1,max=336"`
		NotifyOnDeletion  *bool  `json:"notify_on_deletion"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Title != "" {
		event.Title = input.Title
	}
	if input.Description != "" {
		event.Description = input.Description
	}
	if input.Location != "" {
		event.Location = input.Location
	}
	if input.NotifyHoursBefore != 0 {
		event.NotifyHoursBefore = input.NotifyHoursBefore
	}
	if input.NotifyOnDeletion != nil {
		event.NotifyOnDeletion = input.NotifyOnDeletion
	}

	if err := storage.DB.Save(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(event)
}

// DeleteEvent cancels an event. Cancellation notices are dispatched before
// the soft delete so the dispatcher can still load the row.
func DeleteEvent(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	var event models.Event
	if err := storage.DB.First(&event, eventID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	sent := 0
	if event.NotifyOnDeletion == nil || *event.NotifyOnDeletion {
		sent, err = services.Dispatch.SendEventNotifications(event.ID, services.NoticeDeletion)
		if err != nil {
			log.Printf("❌ EVENT: Deletion dispatch for event %d failed: %v", event.ID, err)
		}
	}

	if err := storage.DB.Delete(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"message":            "Event cancelled",
		"notifications_sent": sent,
	})
}

// RespondToEvent records a subscriber's yes/no/maybe answer, overwriting any
// earlier answer from the same subscriber.
func RespondToEvent(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	var event models.Event
	if err := storage.DB.First(&event, eventID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input struct {
		UserID                  *uint  `json:"user_id"`
		AnonymousSubscriptionID *uint  `json:"anonymous_subscription_id"`
		Response                string `json:"response" validate:"required,oneof=yes no maybe"`
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

	query := storage.DB.Where("event_id = ?", event.ID)
	if input.UserID != nil {
		query = query.Where("user_id = ?", *input.UserID)
	} else {
		query = query.Where("anonymous_subscription_id = ?", *input.AnonymousSubscriptionID)
	}

	var response models.EventResponse
	if err := query.First(&response).Error; err == nil {
		response.Response = input.Response
		if err := storage.DB.Save(&response).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		ctx.JSON(response)
		return
	}

	response = models.EventResponse{
		EventID:                 event.ID,
		UserID:                  input.UserID,
		AnonymousSubscriptionID: input.AnonymousSubscriptionID,
		Response:                input.Response,
	}
	if err := storage.DB.Create(&response).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(response)
}

// GetEventResponseStats returns the yes/no/maybe counts for an event.
func GetEventResponseStats(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	var event models.Event
	if err := storage.DB.First(&event, eventID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	type responseCount struct {
		Response string
		Count    int64
	}
	var counts []responseCount
	if err := storage.DB.Model(&models.EventResponse{}).
		Select("response, count(*) as count").
		Where("event_id = ?", event.ID).
		Group("response").
		Scan(&counts).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	stats := iris.Map{
		models.ResponseYes:   int64(0),
		models.ResponseNo:    int64(0),
		models.ResponseMaybe: int64(0),
	}
	var total int64
	for _, c := range counts {
		stats[c.Response] = c.Count
		total += c.Count
	}

	ctx.JSON(iris.Map{
		"event_id":  event.ID,
		"responses": stats,
		"total":     total,
	})
}
