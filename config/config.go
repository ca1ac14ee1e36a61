package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

var (
	DB  *gorm.DB
	RDB *redis.Client
	Log = zap.NewNop().Sugar()
)

// LoadEnv pulls in a local .env file when present. Deployed environments set
// real environment variables instead.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

func InitLogger() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	Log = logger.Sugar()
}

func InitDB() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		Log.Fatalf("Failed to connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.Meal{},
		&models.MealComponent{},
	)
	if err != nil {
		Log.Fatalf("AutoMigrate failed: %v", err)
	}
}

// InitRedis connects the shared client used by the draft store and the
// identity/meal-list caches. REDIS_ADDR may be left unset for local
// development; callers fall back to in-process stores when RDB is nil.
func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		Log.Warn("REDIS_ADDR not set, drafts will be kept in process memory")
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		Log.Fatalf("Failed to connect to redis: %v", err)
	}

	RDB = rdb
}
