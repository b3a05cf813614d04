package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/calMall/calMarket-sub000/internal/cache"
	h "github.com/calMall/calMarket-sub000/internal/http"
	"github.com/calMall/calMarket-sub000/internal/publisher"
	"github.com/calMall/calMarket-sub000/internal/repository"
	"github.com/calMall/calMarket-sub000/internal/scheduler"
	"github.com/calMall/calMarket-sub000/internal/service"
)

type Config struct {
	HTTPPort        string
	KafkaBrokers    string
	RedisAddr       string
	SweepInterval   time.Duration
	ShipAfter       time.Duration
	DeliverAfter    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Second),
		ShipAfter:       getEnvDuration("SHIP_AFTER", 20*time.Second),
		DeliverAfter:    getEnvDuration("DELIVER_AFTER", 50*time.Second),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("invalid duration in %s, using default %v", key, defaultValue)
	}
	return defaultValue
}

func main() {
	log.Println("calmarket starting...")
	var wg sync.WaitGroup

	cfg := loadConfig()

	// Database setup
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}
	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "calmarket"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Redis product cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	productCache := cache.NewRedisCache(redisClient)

	// Services
	orderService := service.NewOrderService(repo, productCache, cfg.ShipAfter, cfg.DeliverAfter)
	productService := service.NewProductService(repo, productCache)
	cartService := service.NewCartService(repo)
	reviewService := service.NewReviewService(repo)

	// Background workers: lifecycle sweep and outbox publishing
	workerCtx, workerCancel := context.WithCancel(context.Background())

	orderScheduler := scheduler.NewOrderScheduler(orderService, cfg.SweepInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderScheduler.Run(workerCtx)
	}()

	outboxPoller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxPoller.Run(workerCtx)
	}()

	// Handlers
	ordersHandler := h.NewOrdersHandler(orderService, cfg.RequestTimeout)
	productsHandler := h.NewProductsHandler(productService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	reviewsHandler := h.NewReviewsHandler(reviewService, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.AuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Post("/{order_id}/cancel", ordersHandler.CancelOrder)
			r.Post("/{order_id}/refund", ordersHandler.RefundOrder)
		})
		r.Get("/products/{item_code}", productsHandler.GetProduct)
		r.Get("/products/{item_code}/reviews", reviewsHandler.ListReviews)
		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", reviewsHandler.PostReview)
			r.Put("/{review_id}", reviewsHandler.UpdateReview)
			r.Delete("/{review_id}", reviewsHandler.DeleteReview)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{item_code}", cartHandler.RemoveItem)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("calmarket listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	workerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("workers didn't stop in time")
	}

	log.Println("calmarket stopped")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
