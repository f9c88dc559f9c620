package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"urbanreport-be/config"
	"urbanreport-be/controllers"
	"urbanreport-be/models"
	"urbanreport-be/realtime"
	"urbanreport-be/routes"
	"urbanreport-be/services"
	"urbanreport-be/stores"
	"urbanreport-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := utils.NewLogger()

	db := config.ConnectDB()
	if db == nil {
		logger.Fatal("Failed to connect to MongoDB")
	}
	defer config.DisconnectDB()
	logger.Info("MongoDB connection established")

	if err := models.EnsureIssueIndexes(db.Collection("issues")); err != nil {
		logger.WithError(err).Fatal("Failed to create issue indexes")
	}

	issueStore := stores.NewIssueStore(db)
	userStore := stores.NewUserStore(db)
	notificationStore := stores.NewNotificationStore(db)

	// Sequencer: atomic redis counter when available, otherwise the
	// count-based fallback (unique issueId index catches collisions).
	var seq services.Sequencer
	if config.ConnectRedis() {
		logger.Info("Connected to Redis")
		rs := stores.NewRedisSequencer(config.RedisClient, os.Getenv("REDIS_ISSUE_SEQ_KEY"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		count, err := issueStore.Count(ctx, bson.M{})
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to count issues for sequencer seed")
		}
		if err := rs.Seed(config.Ctx, count); err != nil {
			logger.WithError(err).Fatal("Failed to seed issue sequencer")
		}
		seq = rs
	} else {
		logger.Warn("Redis not configured: rate limiting disabled, issue ids use the count fallback")
		seq = stores.NewCountSequencer(db)
	}

	hub := realtime.NewHub(logger)
	defer hub.Close()

	mailer := services.NewMailService(logger)
	notifier := services.NewNotifierService(notificationStore, userStore, mailer, hub, logger)
	defer notifier.Wait()
	lifecycle := services.NewLifecycleService(issueStore, userStore, notifier, seq)

	authController := controllers.NewAuthController(userStore, logger)
	issueController := controllers.NewIssueController(lifecycle, issueStore, userStore, logger)
	adminController := controllers.NewAdminController(lifecycle, issueStore, userStore, logger)
	apiController := controllers.NewAPIController(issueStore, notificationStore, logger)
	streamController := controllers.NewStreamController(hub, logger)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = []string{origins}
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	dailyLimit := 5
	if v, err := strconv.Atoi(os.Getenv("ISSUE_DAILY_LIMIT")); err == nil && v > 0 {
		dailyLimit = v
	}

	routes.AuthRoutes(r, authController)
	routes.IssueRoutes(r, issueController, dailyLimit)
	routes.AdminRoutes(r, adminController)
	routes.APIRoutes(r, apiController, streamController)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
