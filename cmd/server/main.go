package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dbforge/schema-designer/internal/auth"
	"github.com/dbforge/schema-designer/internal/config"
	"github.com/dbforge/schema-designer/internal/database"
	"github.com/dbforge/schema-designer/internal/handler"
	"github.com/dbforge/schema-designer/internal/middleware"
	"github.com/dbforge/schema-designer/internal/queue"
	"github.com/dbforge/schema-designer/internal/repository"
	"github.com/dbforge/schema-designer/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	codec := auth.NewTokenCodec(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
	)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db, codec)
	schemas := repository.NewSchemaRepo(db)

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewSchemaCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(codec, users, tokens, cfg.BcryptCost)
	schemaHandler := handler.NewSchemaHandler(schemas, cache, queue.NewPublisher())

	// Audit trail consumer; keeps reconnecting on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, authHandler, schemaHandler, codec, limiter, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
