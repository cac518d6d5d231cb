package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/emilythestrangee/featureboard/backend/internal/database"
	"github.com/emilythestrangee/featureboard/backend/internal/handlers"
	"github.com/emilythestrangee/featureboard/backend/internal/ratelimit"
	"github.com/emilythestrangee/featureboard/backend/internal/server"
	"github.com/emilythestrangee/featureboard/backend/internal/voting"
)

func main() {
	// Load .env (ignore error in production — env vars set directly)
	_ = godotenv.Load()

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}
	port := getEnv("PORT", "8080")

	// Connect to postgres and run migrations
	dbService := database.New()
	db := dbService.GetDB()

	timeout := time.Duration(getEnvInt("VOTE_TIMEOUT_SECONDS", 8)) * time.Second
	votes := voting.NewService(db, timeout)

	// Rate limiting is optional: without REDIS_ADDR vote casting is
	// unthrottled but everything else works the same.
	var limiter *ratelimit.Limiter
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable, rate limiting disabled: %v", err)
		} else {
			limiter = ratelimit.New(client, getEnvInt("VOTE_RATE_LIMIT", ratelimit.DefaultLimit), ratelimit.DefaultWindow)
			log.Println("✅ Vote rate limiting enabled")
		}
		cancel()
	}

	handler := handlers.NewHandler(db, votes)
	srv := server.New(handler, limiter).HTTPServer(port)

	log.Printf("🚀 Server starting on port %s\n", port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}
