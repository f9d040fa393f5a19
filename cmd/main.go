package main

import (
	"context"
	"log"
	"net/http"

	"github.com/Sirdeeq/GBV-Backend/internal/adapter"
	"github.com/Sirdeeq/GBV-Backend/internal/config"
	"github.com/Sirdeeq/GBV-Backend/internal/hasher"
	"github.com/Sirdeeq/GBV-Backend/internal/repository"
	"github.com/Sirdeeq/GBV-Backend/internal/sms"
	"github.com/Sirdeeq/GBV-Backend/internal/storage"
	"github.com/Sirdeeq/GBV-Backend/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err = mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDatabase)

	// Object storage for profile images
	imageStorage, err := storage.NewMinioStorage(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioUseSSL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Twilio credentials are injected here once; nothing downstream reads
	// the environment.
	smsSender := sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)

	userRepo := repository.NewUserRepository(db, logger)
	passwordHasher := hasher.NewBcryptHasher(0)
	userUsecase := usecase.NewUserUsecase(userRepo, passwordHasher, smsSender, logger)
	userHandler := adapter.NewUserHandler(userUsecase, imageStorage, logger, cfg.IsProduction())

	r := chi.NewRouter()
	adapter.SetupUserRoutes(r, userHandler)

	logger.Info("Starting account service HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
