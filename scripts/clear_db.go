package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"rating-engine/internal/config"
	"rating-engine/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load config
	cfg, err := config.Load("dev")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	// Clear Redis leaderboard too, if configured
	ctx := context.Background()
	rdb, err := db.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Del(ctx, "leaderboard:rating").Err(); err != nil {
			log.Fatalf("Failed to clear leaderboard: %v", err)
		}
		fmt.Println("Cleared leaderboard")
	}

	collections := []struct {
		name string
		coll *mongo.Collection
	}{
		{"rating records", mongodb.PlayerRatings()},
		{"history entries", mongodb.RatingHistory()},
		{"rooms", mongodb.Rooms()},
		{"pending updates", mongodb.PendingRatingUpdates()},
		{"locks", mongodb.CleanupLocks()},
	}

	for _, c := range collections {
		result, err := c.coll.DeleteMany(ctx, bson.M{})
		if err != nil {
			log.Fatalf("Failed to delete %s: %v", c.name, err)
		}
		fmt.Printf("Deleted %d %s\n", result.DeletedCount, c.name)
	}

	fmt.Println("Database cleared successfully")
}
