package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"splitcircle-backend/config"
	"splitcircle-backend/database"
	"splitcircle-backend/handlers"
	"splitcircle-backend/ledger"
	"splitcircle-backend/middleware"
	"splitcircle-backend/reminders"
	"splitcircle-backend/services"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Wire the expense engine and reminder subsystem
	repo := database.NewGormRepository(database.DB)
	store := ledger.NewStore(repo)

	var queue reminders.Queue = reminders.NewMemoryQueue()
	if database.Redis != nil {
		queue = reminders.NewRedisQueue(database.Redis)
	}
	reminderSvc := reminders.NewService(store, repo, queue,
		services.GetNotificationService(), config.AppConfig.ReminderQuietPolicy)
	handlers.Init(store, reminderSvc)

	// Drain deferred reminders once quiet hours end
	services.StartReminderFlusher(context.Background(), reminderSvc, config.AppConfig.ReminderFlushInterval)

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", handlers.GetProfile)
		api.PUT("/users/me", handlers.UpdateProfile)
		api.PUT("/users/me/fcm-token", handlers.UpdateFCMToken)
		api.GET("/users/me/reminder-preferences", handlers.GetReminderPreferences)
		api.PUT("/users/me/reminder-preferences", handlers.UpdateReminderPreferences)
		api.POST("/users/search", handlers.SearchUsers)

		// Circles
		api.POST("/circles", handlers.CreateCircle)
		api.GET("/circles", handlers.GetCircles)
		api.GET("/circles/:id", handlers.GetCircle)
		api.PUT("/circles/:id", handlers.UpdateCircle)
		api.POST("/circles/:id/members", handlers.AddCircleMember)
		api.DELETE("/circles/:id/members/:uid", handlers.RemoveCircleMember)

		// Expenses
		api.POST("/circles/:id/expenses", handlers.CreateExpense)
		api.GET("/circles/:id/expenses", handlers.GetCircleExpenses)
		api.GET("/expenses/:id", handlers.GetExpense)
		api.PUT("/expenses/:id", handlers.UpdateExpense)
		api.DELETE("/expenses/:id", handlers.DeleteExpense)

		// Balances & settlement plans
		api.GET("/circles/:id/balances", handlers.GetCircleBalances)
		api.GET("/circles/:id/settlement-plan", handlers.GetSettlementPlan)
		api.GET("/balances", handlers.GetOverallBalances)

		// Settlements
		api.POST("/circles/:id/settle", handlers.CreateSettlement)
		api.GET("/circles/:id/settlements", handlers.GetCircleSettlements)

		// Reminders
		api.POST("/circles/:id/reminders", handlers.SendReminder)
		api.POST("/reminders/:id/read", handlers.MarkReminderRead)
		api.GET("/reminders", handlers.GetReminders)

		// Activity (audit log feed)
		api.GET("/activity", handlers.GetActivity)
		api.GET("/circles/:id/activity", handlers.GetCircleActivity)
	}

	// Start server
	port := config.AppConfig.Port
	addr := "0.0.0.0:" + port
	log.Printf("🚀 %s listening on %s", config.AppConfig.AppName, addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
