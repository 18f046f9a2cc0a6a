package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/api"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/cmd/utils"
	"github.com/memeland/memeland-server/db"
	"github.com/memeland/memeland-server/service/cache"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Meme{}, "Meme"},
		{&models.Comment{}, "Comment"},
		{&models.MemeVote{}, "MemeVote"},
		{&models.CommentVote{}, "CommentVote"},
		{&models.MemeOfTheDay{}, "MemeOfTheDay"},
	}

	log.Println("Starting database migrations...")
	for _, migration := range migrations {
		log.Printf("Migrating %s table...", migration.name)
		if err := DB.AutoMigrate(migration.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", migration.name, err)
		}
		log.Printf("%s migration successful", migration.name)
	}

	if err := os.MkdirAll(utils.ImagePath, 0755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", utils.ImagePath, err)
	}
	log.Printf("Directory %s created/verified", utils.ImagePath)

	log.Println("All migrations and directory setup completed successfully")
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	redisCache := newRedisCache()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, redisCache)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

// newRedisCache connects to Redis when REDIS_ADDR is set. The daily pick
// works without the cache, so a missing or unreachable Redis only costs the
// cached lookups.
func newRedisCache() *cache.RedisCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsed
		}
	}

	redisCache := cache.NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Printf("Redis unreachable at %s, continuing without cache: %v", addr, err)
		return nil
	}
	log.Printf("Connected to Redis at %s", addr)
	return redisCache
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	tables := []interface{}{
		&models.CommentVote{},
		&models.MemeVote{},
		&models.MemeOfTheDay{},
		&models.Comment{},
		&models.Meme{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
