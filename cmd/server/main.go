package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presencia-backend/internal/config"
	"presencia-backend/internal/database"
	"presencia-backend/internal/handlers"
	"presencia-backend/internal/middleware"
	"presencia-backend/internal/repository"
	"presencia-backend/internal/router"
	"presencia-backend/internal/services"
	"presencia-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Presencia Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	attendanceRepo := repository.NewAttendanceRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	tokenGenerator := services.NewTokenGenerator()
	sessionService := services.NewSessionService(sessionRepo, tokenGenerator, cfg.BaseURL, cfg.DefaultSessionMinutes)
	attendanceService := services.NewAttendanceService(attendanceRepo)
	authService := services.NewAuthService(userRepo, redisClients.Cache, jwtAuth)
	directoryService := services.NewDirectoryService(
		cfg.DirectoryAPIURL,
		time.Duration(cfg.DirectoryTimeoutSec)*time.Second,
		redisClients.Cache,
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService, sessionRepo)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService, sessionService, attendanceRepo, userRepo, handlers.NewRedisFeed(redisClients.Cache))
	courseHandler := handlers.NewCourseHandler(courseRepo)
	directoryHandler := handlers.NewDirectoryHandler(directoryService)

	// ──── Step 5: Start WebSocket Hub (live scan feed) ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ Scan feed hub started")

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		sessionHandler,
		attendanceHandler,
		courseHandler,
		directoryHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Presencia Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
