package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oabuhamdan/event-coordinator/models"
	"github.com/oabuhamdan/event-coordinator/storage"
)

// Seeds a demo organization with subscribers, availability rules and an
// upcoming event. Run against an empty development database.
func main() {
	godotenv.Load()
	storage.InitializeDB()

	yes := true

	owner := models.User{
		FirstName:           "Nadia",
		LastName:            "Haddad",
		Email:               "nadia@example.com",
		Timezone:            "Europe/Berlin",
		AllowsNotifications: &yes,
	}
	if err := storage.DB.Create(&owner).Error; err != nil {
		log.Fatalf("Error creating owner: %v", err)
	}

	org := models.Organization{
		Name:             "Riverside Board Games Club",
		Description:      "Weekly board game meetups by the river.",
		Email:            "club@example.com",
		NotificationType: models.ChannelEmail,
		OwnerID:          owner.ID,
		IsActive:         true,
	}
	if err := storage.DB.Create(&org).Error; err != nil {
		log.Fatalf("Error creating organization: %v", err)
	}

	members := []models.User{
		{FirstName: "Karim", LastName: "Said", Email: "karim@example.com", Timezone: "Europe/Berlin", AllowsNotifications: &yes},
		{FirstName: "Mira", LastName: "Aoun", Email: "mira@example.com", Timezone: "America/New_York", AllowsNotifications: &yes},
	}
	if err := storage.DB.Create(&members).Error; err != nil {
		log.Fatalf("Error creating members: %v", err)
	}

	for i := range members {
		sub := models.Subscription{
			UserID:                 members[i].ID,
			OrganizationID:         org.ID,
			NotificationPreference: models.PreferenceMatching,
		}
		if err := storage.DB.Create(&sub).Error; err != nil {
			log.Fatalf("Error creating subscription: %v", err)
		}
	}

	rules := []models.AvailabilityRule{
		{
			OrganizationID: org.ID,
			UserID:         &members[0].ID,
			RecurrenceKind: models.RecurrenceWeekly,
			Weekday:        3, // Wednesday
			StartTime:      "18:00",
			EndTime:        "22:00",
			Confidence:     models.ConfidenceSure,
		},
		{
			OrganizationID: org.ID,
			UserID:         &members[0].ID,
			RecurrenceKind: models.RecurrenceWeekly,
			Weekday:        6, // Saturday
			StartTime:      "10:00",
			EndTime:        "18:00",
			Confidence:     models.ConfidenceMaybe,
		},
		{
			OrganizationID: org.ID,
			UserID:         &members[1].ID,
			RecurrenceKind: models.RecurrenceMonthlyWeekday,
			Weekday:        3,
			Ordinal:        models.OrdinalFirst,
			StartTime:      "19:00",
			EndTime:        "23:00",
			Confidence:     models.ConfidenceSure,
		},
	}
	if err := storage.DB.Create(&rules).Error; err != nil {
		log.Fatalf("Error creating availability rules: %v", err)
	}

	anon := models.AnonymousSubscription{
		OrganizationID:         org.ID,
		Name:                   "Guest Lena",
		Email:                  "lena@example.com",
		Timezone:               "Europe/Berlin",
		NotificationPreference: models.PreferenceAll,
		IsVerified:             true,
	}
	if err := storage.DB.Create(&anon).Error; err != nil {
		log.Fatalf("Error creating anonymous subscription: %v", err)
	}

	nextWednesday := time.Now()
	for nextWednesday.Weekday() != time.Wednesday {
		nextWednesday = nextWednesday.AddDate(0, 0, 1)
	}
	start := time.Date(nextWednesday.Year(), nextWednesday.Month(), nextWednesday.Day(), 19, 0, 0, 0, time.UTC)

	off := false
	event := models.Event{
		OrganizationID:   org.ID,
		Title:            "Game Night",
		Slug:             "game-night",
		Description:      "Bring your favorite game.",
		StartDatetime:    start,
		EndDatetime:      start.Add(3 * time.Hour),
		Timezone:         "Europe/Berlin",
		Location:         "Riverside Hall",
		NotifyOnCreation: &off, // seeding should not fan out
		IsActive:         true,
	}
	if err := storage.DB.Create(&event).Error; err != nil {
		log.Fatalf("Error creating event: %v", err)
	}

	fmt.Println("Demo data seeded successfully!")
	fmt.Printf("Organization %d, event %d on %s\n", org.ID, event.ID, start.Format("2006-01-02"))
}
