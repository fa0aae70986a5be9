package routes

import (
	"log"
	"strconv"

	"github.com/kataras/iris/v12"

	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

// Subscribe links a registered user to an organization. Subscribing twice is
// a no-op that returns the existing subscription.
func Subscribe(ctx iris.Context) {
	var input struct {
		UserID                 uint   `json:"user_id" validate:"required"`
		OrganizationID         uint   `json:"organization_id" validate:"required"`
		NotificationPreference string `json:"notification_preference" validate:"omitempty,oneof=all matching"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, input.UserID).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "User does not exist.", ctx)
		return
	}
	var organization models.Organization
	if err := storage.DB.First(&organization, input.OrganizationID).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Organization does not exist.", ctx)
		return
	}

	subscription := models.Subscription{
		UserID:                 input.UserID,
		OrganizationID:         input.OrganizationID,
		NotificationPreference: input.NotificationPreference,
	}
	if subscription.NotificationPreference == "" {
		subscription.NotificationPreference = models.PreferenceAll
	}

	if err := storage.DB.
		Where("user_id = ? AND organization_id = ?", input.UserID, input.OrganizationID).
		FirstOrCreate(&subscription).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(subscription)
}

// UpdateSubscription changes the notification preference.
func UpdateSubscription(ctx iris.Context) {
	subID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid subscription ID.", ctx)
		return
	}

	var subscription models.Subscription
	if err := storage.DB.First(&subscription, subID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input struct {
		NotificationPreference string `json:"notification_preference" validate:"required,oneof=all matching"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	subscription.NotificationPreference = input.NotificationPreference
	if err := storage.DB.Save(&subscription).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(subscription)
}

// Unsubscribe removes a subscription. Accepts either a signed token from a
// notification footer, or an explicit subscription reference.
func Unsubscribe(ctx iris.Context) {
	var input struct {
		Token          string `json:"token"`
		SubscriptionID uint   `json:"subscription_id"`
		Anonymous      bool   `json:"anonymous"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	subscriptionID := input.SubscriptionID
	anonymous := input.Anonymous

	if input.Token != "" {
		claims, err := utils.ParseUnsubscribeToken(input.Token)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid or expired token.", ctx)
			return
		}
		if !utils.ConsumeUnsubscribeToken(input.Token) {
			utils.CreateError(iris.StatusGone, "Gone", "This unsubscribe link was already used.", ctx)
			return
		}
		subscriptionID = claims.SubscriptionID
		anonymous = claims.Anonymous
	}
	if subscriptionID == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "token or subscription_id is required.", ctx)
		return
	}

	var err error
	if anonymous {
		err = storage.DB.Delete(&models.AnonymousSubscription{}, subscriptionID).Error
	} else {
		err = storage.DB.Delete(&models.Subscription{}, subscriptionID).Error
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Unsubscribed"})
}

// SubscribeAnonymous signs up a follower without an account. The returned
// verification token would normally travel by email; it is returned here so
// the frontend owns the delivery.
func SubscribeAnonymous(ctx iris.Context) {
	var input struct {
		OrganizationID         uint   `json:"organization_id" validate:"required"`
		Name                   string `json:"name" validate:"required"`
		Email                  string `json:"email" validate:"required,email"`
		PhoneNumber            string `json:"phone_number"`
		WhatsAppNumber         string `json:"whatsapp_number"`
		Timezone               string `json:"timezone"`
		NotificationPreference string `json:"notification_preference" validate:"omitempty,oneof=all matching"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var organization models.Organization
	if err := storage.DB.First(&organization, input.OrganizationID).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Organization does not exist.", ctx)
		return
	}

	if input.PhoneNumber != "" && !utils.ValidatePhoneNumber(input.PhoneNumber) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid phone number.", ctx)
		return
	}
	if input.WhatsAppNumber != "" && !utils.ValidatePhoneNumber(input.WhatsAppNumber) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid WhatsApp number.", ctx)
		return
	}

	var existing models.AnonymousSubscription
	if err := storage.DB.
		Where("organization_id = ? AND email = ?", input.OrganizationID, input.Email).
		First(&existing).Error; err == nil {
		utils.CreateError(iris.StatusConflict, "Conflict", "This email is already subscribed.", ctx)
		return
	}

	subscription := models.AnonymousSubscription{
		OrganizationID:         input.OrganizationID,
		Name:                   input.Name,
		Email:                  input.Email,
		PhoneNumber:            utils.NormalizePhoneNumber(input.PhoneNumber),
		WhatsAppNumber:         utils.NormalizePhoneNumber(input.WhatsAppNumber),
		Timezone:               input.Timezone,
		NotificationPreference: input.NotificationPreference,
		VerificationToken:      utils.GenerateShortToken(16),
	}
	if subscription.NotificationPreference == "" {
		subscription.NotificationPreference = models.PreferenceAll
	}

	if err := storage.DB.Create(&subscription).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	log.Printf("📧 SUBSCRIPTION: Verification token issued for %s (org %d)", input.Email, input.OrganizationID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"subscription":       subscription,
		"verification_token": subscription.VerificationToken,
	})
}

// VerifyAnonymousSubscription confirms the address behind an anonymous
// subscription. Nothing is dispatched to unverified subscribers.
func VerifyAnonymousSubscription(ctx iris.Context) {
	var input struct {
		Token string `json:"token" validate:"required"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var subscription models.AnonymousSubscription
	if err := storage.DB.
		Where("verification_token = ?", input.Token).
		First(&subscription).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Unknown verification token.", ctx)
		return
	}

	if subscription.IsVerified {
		ctx.JSON(subscription)
		return
	}

	subscription.IsVerified = true
	subscription.VerificationToken = ""
	if err := storage.DB.Save(&subscription).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(subscription)
}
