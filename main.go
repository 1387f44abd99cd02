package main

import (
	"log"
	"os"
	"path/filepath"

	"modbot/bot"
	"modbot/config"
	"modbot/handlers"
	"modbot/handlers/pointmod"
	"modbot/moderation"
	"modbot/utils"
	"modbot/utils/database/modpoints"
	"modbot/utils/keylock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger := utils.SetupLogging(cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := modpoints.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer db.Close()

	var locker keylock.Locker = keylock.NewMemLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := keylock.NewRedisLocker(cfg.RedisURL, keylock.DefaultTTL)
		if err != nil {
			log.Fatalf("Error connecting to redis: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
		log.Println("Using redis for point moderation locks")
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	b.Engine, err = moderation.NewEngine(db, moderation.Options{
		Locker:   locker,
		Executor: pointmod.NewExecutor(b),
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Error creating moderation engine: %v", err)
	}

	handlers.Register(b)

	b.Run()

	b.Close()
}
