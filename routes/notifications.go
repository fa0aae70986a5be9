package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kataras/iris/v12"

	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/services"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

// TriggerEventNotifications dispatches notifications for an event on demand,
// for reminders or retried creation fan-outs. Duplicate sends are suppressed
// by the dispatcher.
func TriggerEventNotifications(ctx iris.Context) {
	eventID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid event ID.", ctx)
		return
	}

	body, _ := ctx.GetBody()
	notice, err := parseNoticeInput(body)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
		return
	}

	sent, err := services.Dispatch.SendEventNotifications(uint(eventID), notice)
	if err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Event not found.", ctx)
		return
	}

	ctx.JSON(iris.Map{
		"event_id":           eventID,
		"notice":             notice,
		"notifications_sent": sent,
	})
}

// parseNoticeInput reads the optional trigger body. An absent body, or an
// absent notice field, selects the reminder notice.
func parseNoticeInput(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return services.NoticeReminder, nil
	}

	var input struct {
		Notice string `json:"notice"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		return "", fmt.Errorf("malformed request body: %v", err)
	}

	switch input.Notice {
	case "":
		return services.NoticeReminder, nil
	case services.NoticeCreation, services.NoticeDeletion, services.NoticeReminder:
		return input.Notice, nil
	}
	return "", fmt.Errorf("unknown notice %q", input.Notice)
}

// ListNotificationLogs pages through the dispatch history, optionally
// filtered by event, notice kind or outcome.
func ListNotificationLogs(ctx iris.Context) {
	page, perPage := utils.PageParams(ctx)

	query := storage.DB.Model(&models.NotificationLog{})
	if v := ctx.URLParam("event_id"); v != "" {
		query = query.Where("event_id = ?", v)
	}
	if v := ctx.URLParam("notice"); v != "" {
		query = query.Where("notice = ?", v)
	}
	if v := ctx.URLParam("success"); v != "" {
		query = query.Where("success = ?", v == "true")
	}

	var total int64
	query.Count(&total)

	var logs []models.NotificationLog
	if err := query.Order("sent_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&logs).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, logs, page, perPage, total)
}

// SendTestNotification sends a throwaway message through the configured
// sender, to verify channel configuration.
func SendTestNotification(ctx iris.Context) {
	var input struct {
		Channel   string `json:"channel" validate:"required,oneof=email sms whatsapp"`
		Recipient string `json:"recipient" validate:"required"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	recipient := input.Recipient
	if input.Channel != models.ChannelEmail {
		if !utils.ValidatePhoneNumber(recipient) {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid phone number.", ctx)
			return
		}
		recipient = utils.NormalizePhoneNumber(recipient)
	}

	err := services.Dispatch.SendTest(services.Message{
		Channel:   input.Channel,
		Recipient: recipient,
		Subject:   "Test notification",
		Body:      "This is a test notification. If you can read this, the channel works.",
	})
	if err != nil {
		utils.CreateError(iris.StatusBadGateway, "Bad Gateway", "Sending failed: "+err.Error(), ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Test notification sent"})
}
