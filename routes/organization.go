package routes

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/services"
	"github.com/oabuhamdan/event-coordinator/storage"
	"github.com/oabuhamdan/event-coordinator/utils"
)

type OrganizationInput struct {
	Name             string `json:"name" validate:"required,max=256"`
	Description      string `json:"description"`
	Website          string `json:"website"`
	Logo             string `json:"logo"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	NotificationType string `json:"notification_type" validate:"omitempty,oneof=email sms whatsapp"`
	OwnerID          uint   `json:"owner_id" validate:"required"`
}

// CreateOrganization registers a new event-publishing organization.
func CreateOrganization(ctx iris.Context) {
	var input OrganizationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var owner models.User
	if err := storage.DB.First(&owner, input.OwnerID).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Owner user does not exist.", ctx)
		return
	}

	organization := models.Organization{
		Name:             input.Name,
		Description:      input.Description,
		Website:          input.Website,
		Logo:             input.Logo,
		Email:            input.Email,
		Phone:            input.Phone,
		NotificationType: input.NotificationType,
		OwnerID:          input.OwnerID,
		IsActive:         true,
	}
	if organization.NotificationType == "" {
		organization.NotificationType = models.ChannelEmail
	}

	if err := storage.DB.Create(&organization).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(organization)
}

// GetOrganization returns a single organization with its owner.
func GetOrganization(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	var organization models.Organization
	if err := storage.DB.Preload("Owner").First(&organization, orgID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(organization)
}

// UpdateOrganization patches organization settings. Empty fields keep their
// current value.
func UpdateOrganization(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	var organization models.Organization
	if err := storage.DB.First(&organization, orgID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input struct {
		Name             string `json:"name"`
		Description      string `json:"description"`
		Website          string `json:"website"`
		Logo             string `json:"logo"`
		Email            string `json:"email" validate:"omitempty,email"`
		Phone            string `json:"phone"`
		NotificationType string `json:"notification_type" validate:"omitempty,oneof=email sms whatsapp"`
		IsActive         *bool  `json:"is_active"`
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Name != "" {
		organization.Name = input.Name
	}
	if input.Description != "" {
		organization.Description = input.Description
	}
	if input.Website != "" {
		organization.Website = input.Website
	}
	if input.Logo != "" {
		organization.Logo = input.Logo
	}
	if input.Email != "" {
		organization.Email = input.Email
	}
	if input.Phone != "" {
		organization.Phone = input.Phone
	}
	if input.NotificationType != "" {
		organization.NotificationType = input.NotificationType
	}
	if input.IsActive != nil {
		organization.IsActive = *input.IsActive
	}

	if err := storage.DB.Save(&organization).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(organization)
}

// GetOrganizationAnalytics returns the availability breakdown for the
// organization's subscribers over a date range. Defaults to the next 30 days.
func GetOrganizationAnalytics(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	var organization models.Organization
	if err := storage.DB.First(&organization, orgID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, 30)
	if v := ctx.URLParam("start"); v != "" {
		start, err = time.Parse("2006-01-02", v)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid start date, expected YYYY-MM-DD.", ctx)
			return
		}
	}
	if v := ctx.URLParam("end"); v != "" {
		end, err = time.Parse("2006-01-02", v)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid end date, expected YYYY-MM-DD.", ctx)
			return
		}
	}
	if end.Before(start) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "End date is before start date.", ctx)
		return
	}

	analytics, err := services.GetAvailabilityAnalytics(organization.ID, start, end)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(analytics)
}

// ListOrganizationSubscribers pages through registered and anonymous
// subscribers of an organization.
func ListOrganizationSubscribers(ctx iris.Context) {
	orgID, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid organization ID.", ctx)
		return
	}

	page, perPage := utils.PageParams(ctx)
	offset := (page - 1) * perPage

	var total int64
	storage.DB.Model(&models.Subscription{}).Where("organization_id = ?", orgID).Count(&total)

	var subscriptions []models.Subscription
	if err := storage.DB.Preload("User").
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Offset(offset).Limit(perPage).
		Find(&subscriptions).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var anonTotal int64
	storage.DB.Model(&models.AnonymousSubscription{}).
		Where("organization_id = ? AND is_verified = ?", orgID, true).Count(&anonTotal)

	var anonSubs []models.AnonymousSubscription
	if err := storage.DB.
		Where("organization_id = ? AND is_verified = ?", orgID, true).
		Order("created_at DESC").
		Offset(offset).Limit(perPage).
		Find(&anonSubs).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, iris.Map{
		"subscriptions":           subscriptions,
		"anonymous_subscriptions": anonSubs,
	}, page, perPage, total+anonTotal)
}
