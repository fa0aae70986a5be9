package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"

	"github.com/oabuhamdan/event-coordinator/routes"
	"github.com/oabuhamdan/event-coordinator/storage"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression only
	app.Use(iris.Compression)

	// Health check endpoint
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	organization := app.Party("/api/organization")
	{
		organization.Post("/", routes.CreateOrganization)
		organization.Get("/{id}", routes.GetOrganization)
		organization.Patch("/{id}", routes.UpdateOrganization)
		organization.Get("/{id}/analytics", routes.GetOrganizationAnalytics)
		organization.Get("/{id}/subscribers", routes.ListOrganizationSubscribers)
		organization.Get("/{id}/events", routes.GetOrganizationEvents)
	}

	event := app.Party("/api/event")
	{
		event.Post("/", routes.CreateEvent)
		event.Get("/{id}", routes.GetEvent)
		event.Patch("/{id}", routes.UpdateEvent)
		event.Delete("/{id}", routes.DeleteEvent)
		event.Post("/{id}/respond", routes.RespondToEvent)
		event.Get("/{id}/responses", routes.GetEventResponseStats)
	}

	availability := app.Party("/api/availability")
	{
		availability.Get("/organization/{orgID}", routes.ListAvailability)
		availability.Post("/", routes.SetAvailability)
		availability.Post("/preview", routes.PreviewMatch)
	}

	subscription := app.Party("/api/subscription")
	{
		subscription.Post("/", routes.Subscribe)
		subscription.Patch("/{id}", routes.UpdateSubscription)
		subscription.Post("/unsubscribe", routes.Unsubscribe)
		subscription.Post("/anonymous", routes.SubscribeAnonymous)
		subscription.Post("/anonymous/verify", routes.VerifyAnonymousSubscription)
	}

	notifications := app.Party("/api/notifications")
	{
		notifications.Post("/event/{id}", routes.TriggerEventNotifications)
		notifications.Get("/logs", routes.ListNotificationLogs)
		notifications.Post("/test", routes.SendTestNotification)
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	// Start server
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
