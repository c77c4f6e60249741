package db

import (
	"context"
	"time"

	"profile_hub/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// InitMongo connects to the user document store with bounded retry.
func InitMongo(mongoCfg *config.MongoConfig) *mongo.Database {
	var client *mongo.Client
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		client, err = mongo.Connect(ctx, options.Client().
			ApplyURI(mongoCfg.URI).
			SetServerSelectionTimeout(5*time.Second))
		if err != nil {
			cancel()
			logrus.Warnf("Failed to connect to MongoDB (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		err = client.Ping(ctx, readpref.Primary())
		cancel()
		if err != nil {
			logrus.Warnf("Failed to ping MongoDB (attempt %d/%d): %v", i+1, maxRetries, err)
			_ = client.Disconnect(context.Background())
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		break
	}

	if err != nil {
		logrus.Fatalf("Failed to connect to MongoDB after %d attempts: %v", maxRetries, err)
	}

	logrus.Info("MongoDB connection established successfully")
	return client.Database(mongoCfg.Database)
}
