package main // Entry point package

import (
	"log"  // Logging library
	"time" // Converts config hours into durations

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/library-lending/internal/config"     // Internal config loader
	"github.com/iliyamo/library-lending/internal/database"   // MySQL connection helper
	"github.com/iliyamo/library-lending/internal/handler"    // HTTP handlers
	"github.com/iliyamo/library-lending/internal/lending"    // Borrow lifecycle engine
	"github.com/iliyamo/library-lending/internal/middleware" // Rate limiting middleware
	"github.com/iliyamo/library-lending/internal/queue"      // Notification consumer
	"github.com/iliyamo/library-lending/internal/repository" // DB repositories
	"github.com/iliyamo/library-lending/internal/router"     // Route registration
	queue_publisher "github.com/iliyamo/library-lending/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	// Connect to MySQL and verify the connection before serving.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared handle.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	borrows := repository.NewBorrowRepo(db)
	store := repository.NewLendingStore(db, books, borrows, users)

	// The lifecycle engine publishes every transition to the broker; the
	// consumer below turns those into notification log lines.
	svc := lending.NewService(store, queue_publisher.NewNotifier(), lending.Options{
		LoanPeriodDays:  cfg.LoanPeriodDays,
		CollectionGrace: time.Duration(cfg.CollectionGraceHours) * time.Hour,
	})
	sweeper := lending.NewSweeper(svc, cfg.SweepInterval)
	if cfg.SweepAutostart {
		sweeper.Start()
	}

	// Background consumer for the lending.events queue.  It reconnects on
	// its own; a broker outage never blocks the API.
	go func() {
		if err := queue.StartLendingConsumer(); err != nil {
			log.Printf("lending-consumer: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Distributed token-bucket rate limiting backed by Redis.  When Redis
	// is unreachable the middleware degrades to a pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Route registration.
	router.RegisterRoutes(e) // health check
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterBooks(e, handler.NewBookHandler(books), cfg.JWTSecret)
	router.RegisterLending(e, handler.NewBorrowHandler(svc), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(svc, sweeper, users), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
