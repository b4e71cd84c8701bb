package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	domainRepo "taxibot-service/internal/domain/repository"
	"taxibot-service/internal/infrastructure/config"
	"taxibot-service/internal/infrastructure/persistence"
	ifaceRepo "taxibot-service/internal/interface/repository"
	"taxibot-service/internal/interface/webhook"
	"taxibot-service/internal/usecase"
	"taxibot-service/pkg/events"
	"taxibot-service/pkg/logger"
	"taxibot-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Taxibot Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Set up Redis for the conversation context store
	log.Info("Connecting to Redis")
	redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}

	// Fare table reference data is optional; built-in rates cover its absence
	var rateRepository domainRepo.RateRepository
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		rateRepository = ifaceRepo.NewGormRateRepository(gormDB)
	}
	rates := usecase.LoadRates(ctx, rateRepository, log)

	// Set up metrics
	m := metrics.NewMetrics("taxibot")

	// Set up repositories
	customerRepo := ifaceRepo.NewMongoCustomerRepository(db)
	conversationRepo := ifaceRepo.NewMongoConversationRepository(db)
	messageRepo := ifaceRepo.NewMongoMessageRepository(db)
	rideRepo := ifaceRepo.NewMongoRideRepository(db)
	rideEventRepo := ifaceRepo.NewMongoRideEventRepository(db)
	contextStore := ifaceRepo.NewRedisContextStore(redisClient, cfg.ConversationTimeout)

	whatsappRepo := ifaceRepo.NewWhatsappRepository(log, cfg.WhatsAppBaseURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	dispatchRepo := ifaceRepo.NewDispatchRepository(log, cfg.DispatchBaseURL, cfg.DispatchTokenURL, cfg.DispatchClientID, cfg.DispatchClientSecret)
	geocoderRepo := ifaceRepo.NewHTTPGeocoderRepository(log, cfg.GeocoderBaseURL)

	// Remote classifier is optional; keyword rules carry the flow without it
	var intentRepo domainRepo.IntentRepository
	if cfg.GeminiAPIKey != "" {
		intentRepo, err = ifaceRepo.NewGeminiIntentRepository(ctx, log, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("Failed to create intent classifier", "error", err)
		}
	}

	// Back-office event stream is optional as well
	var publisher events.Publisher
	if cfg.AMQPURI != "" {
		publisher, err = events.New(cfg.AMQPURI, cfg.AMQPExchange, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		defer publisher.Close()
	}

	// Set up use cases
	locks := usecase.NewKeyedMutex()
	notifier := usecase.NewNotifier(whatsappRepo, messageRepo, log)
	classifier := usecase.NewClassifier(intentRepo, cfg.ExternalCallTimeout, log, m)
	coordinator := usecase.NewRideCoordinator(
		rideRepo, rideEventRepo, conversationRepo, contextStore,
		dispatchRepo, notifier, publisher, locks, log, m, cfg.ExternalCallTimeout,
	)
	processor := usecase.NewConversationProcessor(
		customerRepo, conversationRepo, contextStore, whatsappRepo,
		dispatchRepo, geocoderRepo, notifier, classifier, coordinator,
		rates, locks, log, m,
		cfg.ConversationTimeout, cfg.LocationWaitFallback, cfg.ExternalCallTimeout,
	)

	// Set up HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	mux.Handle("/webhooks/whatsapp", webhook.NewWhatsAppHandler(processor, cfg.WhatsAppVerifyToken, cfg.ExternalCallTimeout*4, log))
	mux.Handle("/webhooks/dispatch", webhook.NewDispatchHandler(coordinator, cfg.ExternalCallTimeout*2, log))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Redis close error", "error", err)
	}

	log.Info("Taxibot Service stopped")
}
