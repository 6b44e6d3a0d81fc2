package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymvida/gym-manager/internal/api"
	"gymvida/gym-manager/internal/config"
	"gymvida/gym-manager/internal/repository"
	"gymvida/gym-manager/internal/repository/mongo"
	"gymvida/gym-manager/internal/service"
	"gymvida/gym-manager/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Gym Manager Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("usuarios"))
		mongo.EnsureClientIndexes(ctx, appDB.Collection("clientes"))
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("planes"))
		mongo.EnsureContractIndexes(ctx, appDB.Collection("contratos"))
		mongo.EnsurePaymentIndexes(ctx, appDB.Collection("pagos"))
		mongo.EnsureProgressLogIndexes(ctx, appDB.Collection("registros_progreso"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	clientRepo := mongo.NewMongoClientRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	contractRepo := mongo.NewMongoContractRepository(appDB)
	paymentRepo := mongo.NewMongoPaymentRepository(appDB)
	progressLogRepo := mongo.NewMongoProgressLogRepository(appDB)

	var txnManager repository.TransactionManager
	if cfg.Database.Transactions {
		txnManager = mongo.NewSessionTransactionManager(dbClient)
	} else {
		log.Println("WARN: Mongo transactions disabled, dual writes rely on compensation only.")
		txnManager = mongo.NewPassthroughTransactionManager()
	}

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	clientService := service.NewClientService(clientRepo, contractRepo)
	contractService := service.NewContractService(contractRepo, clientRepo, planRepo, txnManager)
	paymentService := service.NewPaymentService(paymentRepo, clientRepo, contractRepo)
	progressService := service.NewProgressService(progressLogRepo, clientRepo, fileStorage)
	progressCleaner := service.NewProgressLogCleaner(progressLogRepo, fileStorage)
	planService := service.NewPlanService(planRepo, clientRepo, contractRepo, progressCleaner, txnManager)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret,
		authService, clientService, planService, contractService, paymentService, progressService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
