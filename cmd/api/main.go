package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CivicLink/civiclink-backend/api/routes"
	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/handlers"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	mongorepo "github.com/CivicLink/civiclink-backend/internal/repositories/mongodb"
	"github.com/CivicLink/civiclink-backend/internal/services"
	"github.com/CivicLink/civiclink-backend/pkg/mongodb"
	"github.com/CivicLink/civiclink-backend/pkg/push"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("[FATAL] JWT_SECRET must be set")
	}

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	// Repositories
	var userRepo repositories.UserRepository = mongorepo.NewUserRepository(db)
	var credentialRepo repositories.CredentialRepository = mongorepo.NewCredentialRepository(db)
	var notificationRepo repositories.NotificationRepository = mongorepo.NewNotificationRepository(db)
	var inboxRepo repositories.UserNotificationRepository = mongorepo.NewUserNotificationRepository(db)
	var ledgerRepo repositories.PointTransactionRepository = mongorepo.NewPointTransactionRepository(db)
	var settingsRepo repositories.SystemSettingsRepository = mongorepo.NewSystemSettingsRepository(db)
	var batchWriter repositories.BatchWriter = mongorepo.NewBatchWriter(db)

	// Push transports
	var multicaster push.Multicaster
	if cfg.FCM.Mock {
		log.Println("[INFO] Using mock FCM multicaster")
		multicaster = push.NewMockMulticaster("fcm")
	} else {
		multicaster, err = push.NewFCMClient(context.Background(), cfg.FCM.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize FCM client: %v", err)
		}
	}

	var bridge push.BridgeSender
	if cfg.Expo.Mock {
		log.Println("[INFO] Using mock push bridge")
		bridge = push.NewMockBridge("expo")
	} else {
		bridge = push.NewExpoClient(cfg.Expo.BaseURL, cfg.Expo.AccessToken)
	}

	// Services
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	credentialService := services.NewCredentialService(credentialRepo, userRepo, cfg)
	userService := services.NewUserService(userRepo, credentialService)
	notificationService := services.NewNotificationService(notificationRepo, inboxRepo, userRepo, batchWriter, multicaster, bridge, cfg)
	pointsService := services.NewPointsService(userRepo, ledgerRepo, settingsRepo, batchWriter, cfg)

	// Handlers
	handlerDeps := &routes.HandlerDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService),
		UserHandler:         handlers.NewUserHandler(userService, notificationService, pointsService),
		CredentialHandler:   handlers.NewCredentialHandler(credentialService, userService),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		PointsHandler:       handlers.NewPointsHandler(pointsService),
	}

	router := routes.SetupRouter(cfg, handlerDeps)

	if cfg.Scheduler.Enabled {
		scheduler := services.NewScheduler(notificationService, pointsService, settingsRepo, cfg.Scheduler.SweepMinutes)
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
