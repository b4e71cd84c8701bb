// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// PostgreSQL (fare table reference data)
	PostgresURI string

	// Redis (conversation context store)
	RedisURI string

	// WhatsApp channel
	WhatsAppBaseURL     string
	WhatsAppToken       string
	WhatsAppPhoneID     string
	WhatsAppVerifyToken string

	// Dispatch provider
	DispatchBaseURL      string
	DispatchTokenURL     string
	DispatchClientID     string
	DispatchClientSecret string

	// Gemini intent classifier
	GeminiAPIKey string
	GeminiModel  string

	// Reverse geocoder
	GeocoderBaseURL string

	// RabbitMQ back-office event stream (optional)
	AMQPURI      string
	AMQPExchange string

	// Flow tuning
	ConversationTimeout  time.Duration
	LocationWaitFallback time.Duration
	ExternalCallTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "taxibot"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", ""),
		RedisURI:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		WhatsAppBaseURL:     getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppToken:       getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_ID", ""),
		WhatsAppVerifyToken: getEnv("WHATSAPP_VERIFY_TOKEN", ""),

		DispatchBaseURL:      getEnv("DISPATCH_BASE_URL", ""),
		DispatchTokenURL:     getEnv("DISPATCH_TOKEN_URL", ""),
		DispatchClientID:     getEnv("DISPATCH_CLIENT_ID", ""),
		DispatchClientSecret: getEnv("DISPATCH_CLIENT_SECRET", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		GeocoderBaseURL: getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),

		AMQPURI:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "taxibot.events"),

		ConversationTimeout:  time.Duration(getEnvAsInt("CONVERSATION_TIMEOUT_MIN", 30)) * time.Minute,
		LocationWaitFallback: time.Duration(getEnvAsInt("LOCATION_WAIT_FALLBACK_SEC", 30)) * time.Second,
		ExternalCallTimeout:  time.Duration(getEnvAsInt("EXTERNAL_CALL_TIMEOUT_SEC", 15)) * time.Second,
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
