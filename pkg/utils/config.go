package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Listing  ListingConfig
	Booking  BookingConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	NotificationTopic string
}

type ListingConfig struct {
	// Store selects the listing backend: "postgres" or "mongo".
	Store      string
	MaxRetries int
}

type BookingConfig struct {
	CancelWindow time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("APP_NAME", "waste-marketplace")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "waste_marketplace")
	viper.SetDefault("MONGO_LISTING_COLLECTION", "listings")
	viper.SetDefault("MONGO_TIMEOUT", "10s")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_NOTIFICATION_TOPIC", "marketplace.notifications")
	viper.SetDefault("LISTING_STORE", "postgres")
	viper.SetDefault("LISTING_MAX_RETRIES", 3)
	viper.SetDefault("BOOKING_CANCEL_WINDOW", "2h")

	if err := viper.ReadInConfig(); err != nil {
		// running with plain environment variables is fine
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
			CORSOrigins:     splitList(viper.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Mongo: MongoConfig{
			URI:        viper.GetString("MONGO_URI"),
			Database:   viper.GetString("MONGO_DATABASE"),
			Collection: viper.GetString("MONGO_LISTING_COLLECTION"),
			Timeout:    viper.GetDuration("MONGO_TIMEOUT"),
		},
		Redis: RedisConfig{
			Enabled:        viper.GetBool("REDIS_ENABLED"),
			Addr:           viper.GetString("REDIS_ADDR"),
			Password:       viper.GetString("REDIS_PASSWORD"),
			DB:             viper.GetInt("REDIS_DB"),
			IdempotencyTTL: viper.GetDuration("IDEMPOTENCY_TTL"),
		},
		Kafka: KafkaConfig{
			Enabled:           viper.GetBool("KAFKA_ENABLED"),
			Brokers:           splitList(viper.GetString("KAFKA_BROKERS")),
			NotificationTopic: viper.GetString("KAFKA_NOTIFICATION_TOPIC"),
		},
		Listing: ListingConfig{
			Store:      viper.GetString("LISTING_STORE"),
			MaxRetries: viper.GetInt("LISTING_MAX_RETRIES"),
		},
		Booking: BookingConfig{
			CancelWindow: viper.GetDuration("BOOKING_CANCEL_WINDOW"),
		},
	}

	return config, nil
}

// splitList reads comma separated env values such as "broker1:9092,broker2:9092".
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
