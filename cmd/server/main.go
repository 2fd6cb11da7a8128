package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/config"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/database"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/handler"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/queue"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/repository"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/router"
)

func main() {
	// .env is optional; deployments set real environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, caching and rate limiting disabled")
	}

	h := handler.NewSeatingHandler(
		repository.NewEventRepo(db),
		repository.NewGuestRepo(db),
		repository.NewTableRepo(db),
	)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSeating(e, h, cfg.JWTSecret, rdb)

	go func() {
		if err := queue.StartSeatingConsumer(); err != nil {
			log.Printf("seating consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
