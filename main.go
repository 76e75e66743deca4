package main

import (
	"context"
	"log"
	"strings"

	"waste-marketplace/cmd"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/notification"
	"waste-marketplace/internal/wire"
	"waste-marketplace/pkg/database"
	"waste-marketplace/pkg/messaging"
	"waste-marketplace/pkg/middleware"
	"waste-marketplace/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("listing_store", config.Listing.Store),
	)

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	if strings.EqualFold(config.Listing.Store, "mongo") {
		client, err := database.InitMongo(config.Mongo)
		if err != nil {
			logger.Fatal("Failed to connect to mongo", zap.Error(err))
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		collection := client.Database(config.Mongo.Database).Collection(config.Mongo.Collection)
		if err := repository.EnsureListingIndexes(context.Background(), collection); err != nil {
			logger.Fatal("Failed to create listing indexes", zap.Error(err))
		}
		repos.UseListingStore(repository.NewListingMongoRepository(collection, config.Mongo.Timeout, logger))
		logger.Info("Listings stored in mongo", zap.String("collection", config.Mongo.Collection))
	}

	var idempotency middleware.IdempotencyStore = middleware.NewInMemoryIdempotencyStore(config.Redis.IdempotencyTTL)
	if config.Redis.Enabled {
		rdb, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()

		idempotency = middleware.NewRedisIdempotencyStore(rdb, config.Redis.IdempotencyTTL)
		logger.Info("Redis connected, idempotency keys shared across instances")
	}

	sinks := notification.FanOut{notification.NewStoreSink(repos.Notification)}
	if config.Kafka.Enabled {
		producer, err := messaging.NewProducer(config.Kafka.Brokers, config.Kafka.NotificationTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create kafka producer", zap.Error(err))
		}
		defer func() { _ = producer.Close() }()

		sinks = append(sinks, notification.NewKafkaSink(producer, config.App.Name))
		logger.Info("Publishing notifications to kafka", zap.String("topic", producer.Topic()))
	}

	app := wire.Wiring(repos, sinks, idempotency, config, logger)

	if err := cmd.APIServer(app.Router, config.App, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}
