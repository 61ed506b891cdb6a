package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/slotswapper/slotswapper/config"
	"github.com/slotswapper/slotswapper/database"
	"github.com/slotswapper/slotswapper/database/memorystore"
	"github.com/slotswapper/slotswapper/database/repositories"
	"github.com/slotswapper/slotswapper/handlers"
	"github.com/slotswapper/slotswapper/logger"
	"github.com/slotswapper/slotswapper/middleware"
	"github.com/slotswapper/slotswapper/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler("SlotSwapper", cfg.Log.Level)))
	logger.LogSystem("Starting SlotSwapper API",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("driver", cfg.DB.Driver),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		db       *database.DB
		userRepo repositories.UserRepository
		slotRepo repositories.SlotRepository
		swapRepo repositories.SwapRepository
	)

	switch cfg.DB.Driver {
	case "memory":
		store := memorystore.New()
		userRepo = store.Users()
		slotRepo = store.Slots()
		swapRepo = store.Swaps()
		if cfg.Auth.Secret == "" {
			cfg.Auth.Secret = randomSecret()
			slog.Warn("No auth secret configured; generated an ephemeral one")
		}
	case "postgres":
		if cfg.Auth.Secret == "" {
			logger.LogError("Auth secret is required for the postgres driver", fmt.Errorf("auth.secret missing"))
			os.Exit(1)
		}
		db, err = database.New(ctx, database.DBConfig{
			Host:         cfg.DB.Host,
			Port:         cfg.DB.Port,
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Database:     cfg.DB.Database,
			PoolSize:     cfg.DB.PoolSize,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxLifetime:  cfg.DB.MaxLifetime,
		})
		if err != nil {
			logger.LogError("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.CreateSchema(ctx); err != nil {
			logger.LogError("Failed to create schema", err)
			os.Exit(1)
		}

		userRepo = repositories.NewUserRepository(db.BunDB())
		slotRepo = repositories.NewSlotRepository(db.BunDB())
		swapRepo = repositories.NewSwapRepository(db.BunDB())
	default:
		logger.LogError("Unknown db driver", fmt.Errorf("driver %q", cfg.DB.Driver))
		os.Exit(1)
	}

	authService := services.NewAuthService(userRepo, cfg.Auth.Secret, cfg.Auth.TokenTTL())
	slotService := services.NewSlotService(slotRepo)
	swapService := services.NewSwapService(slotRepo, swapRepo, userRepo)

	app := fiber.New(fiber.Config{
		AppName:      "SlotSwapper API",
		ServerHeader: "SlotSwapper",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.HTTP.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware())

	webApp := &handlers.WebApp{
		Config:      cfg,
		DB:          db,
		AuthService: authService,
		SlotService: slotService,
		SwapService: swapService,
		Version:     version,
	}

	setupRoutes(app, webApp, cfg)

	address := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	logger.LogSystem("Starting server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			logger.LogError("Failed to start server", err)
		}
	}()

	<-c
	logger.LogSystem("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.LogError("Server shutdown error", err)
	}

	logger.LogSystem("Shutdown complete")
}

func setupRoutes(app *fiber.App, webApp *handlers.WebApp, cfg *config.Config) {
	app.Get("/health", handlers.HealthCheck(webApp))

	auth := app.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	auth.Post("/signup", handlers.Signup(webApp))
	auth.Post("/login", handlers.Login(webApp))

	api := app.Group("/api")
	api.Use(middleware.AuthRequired(webApp.AuthService))
	api.Use(middleware.RateLimit(cfg.HTTP.RateLimit, time.Minute))

	api.Get("/events", handlers.EventsList(webApp))
	api.Post("/events", handlers.EventsCreate(webApp))
	api.Put("/events/:id", handlers.EventsUpdate(webApp))
	api.Delete("/events/:id", handlers.EventsDelete(webApp))

	api.Get("/swappable-slots", handlers.SwappableSlots(webApp))

	api.Post("/swap-request", handlers.SwapRequestCreate(webApp))
	api.Post("/swap-response/:requestId", handlers.SwapResponse(webApp))
	api.Get("/swap-requests", handlers.SwapRequestsList(webApp))
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
