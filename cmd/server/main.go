package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/academy-education/classraum-sub009/internal/handlers"
	appMiddleware "github.com/academy-education/classraum-sub009/internal/middleware"
	"github.com/academy-education/classraum-sub009/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	ctx := context.Background()

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}
	authClient, err := services.InitFirebase(ctx, credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis cache (optional)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching and webhook locks disabled")
	}

	// Initialize payment gateway client
	midtransClient := services.NewMidtransService()

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authClient)
	dashboardHandler := handlers.NewDashboardHandler(db, cache)
	subscriptionHandler := handlers.NewSubscriptionHandler(db, cache, midtransClient)
	invoiceHandler := handlers.NewInvoiceHandler(db, midtransClient)
	studentHandler := handlers.NewStudentHandler(db)
	templateHandler := handlers.NewTemplateHandler(db)
	settingHandler := handlers.NewNotificationSettingHandler(db)
	webhookHandler := handlers.NewWebhookHandler(db, cache, midtransClient)
	jobHandler := handlers.NewBillingJobHandler(db, midtransClient)

	// Public routes
	e.POST("/api/auth/login", authHandler.HandleLogin)
	e.POST("/api/auth/logout", authHandler.HandleLogout)

	// Payment gateway webhook; authenticity is checked by signature, not session
	e.POST("/api/webhooks/payment", webhookHandler.HandlePaymentCallback)

	// Job routes for the external cron invoker
	jobs := e.Group("/api/jobs")
	jobs.Use(appMiddleware.RequireJobToken())
	jobs.POST("/recurring-invoices", jobHandler.RunRecurringInvoices)
	jobs.GET("/recurring-invoices", jobHandler.RecurringInvoicesStatus)
	jobs.POST("/subscription-renewals", jobHandler.RunSubscriptionRenewals)

	// Staff routes
	api := e.Group("/api")
	api.Use(appMiddleware.RequireAuth(authClient))

	academies := api.Group("/academies/:id")
	academies.GET("/billing-summary", dashboardHandler.GetBillingSummary)

	academies.POST("/subscription", subscriptionHandler.Subscribe)
	academies.GET("/subscription", subscriptionHandler.GetSubscription)
	academies.POST("/subscription/upgrade", subscriptionHandler.Upgrade)
	academies.POST("/subscription/downgrade", subscriptionHandler.Downgrade)
	academies.POST("/subscription/cancel", subscriptionHandler.Cancel)

	academies.GET("/students", studentHandler.ListStudents)
	academies.POST("/students", studentHandler.CreateStudent)
	api.GET("/students/:studentId", studentHandler.GetStudent)
	api.PUT("/students/:studentId", studentHandler.UpdateStudent)
	api.DELETE("/students/:studentId", studentHandler.DeleteStudent)

	academies.GET("/templates", templateHandler.ListTemplates)
	academies.POST("/templates", templateHandler.CreateTemplate)
	api.GET("/templates/:templateId", templateHandler.GetTemplate)
	api.PUT("/templates/:templateId", templateHandler.UpdateTemplate)
	api.DELETE("/templates/:templateId", templateHandler.DeleteTemplate)
	api.POST("/templates/:templateId/students", templateHandler.EnrollStudent)
	api.DELETE("/templates/:templateId/students/:studentId", templateHandler.UnenrollStudent)

	academies.GET("/invoices", invoiceHandler.ListInvoices)
	api.GET("/invoices/:invoiceId", invoiceHandler.GetInvoice)
	api.POST("/invoices/:invoiceId/pay", invoiceHandler.InitiatePayment)

	api.GET("/students/:studentId/notification-setting", settingHandler.GetSetting)
	api.PUT("/students/:studentId/notification-setting", settingHandler.UpsertSetting)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
