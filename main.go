package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ellavondegurechaff/snapquest/snapquest"
	"github.com/ellavondegurechaff/snapquest/snapquest/database"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	"github.com/ellavondegurechaff/snapquest/snapquest/logger"
	"github.com/ellavondegurechaff/snapquest/snapquest/services"
	"github.com/ellavondegurechaff/snapquest/web/config"
	"github.com/ellavondegurechaff/snapquest/web/handlers"
	"github.com/ellavondegurechaff/snapquest/web/middleware"
	webservices "github.com/ellavondegurechaff/snapquest/web/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting SnapQuest",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := snapquest.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	webCfg := config.NewWebAppConfig(cfg, *debug)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
	slog.Info("Database ready")

	// Repositories
	devices := repositories.NewDeviceRepository(db.BunDB())
	accounts := repositories.NewAccountRepository(db.BunDB())
	photos := repositories.NewPhotoRepository(db.BunDB())
	quests := repositories.NewQuestRepository(db.BunDB())
	progress := repositories.NewProgressRepository(db.BunDB())

	// Blob storage
	spacesService := services.NewSpacesService(
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.PhotoRoot,
	)

	// Web services
	sessionService := webservices.NewSessionService(webCfg)
	authService := webservices.NewAuthService(accounts, devices, webCfg.AdminPassphrase())
	uploadService := webservices.NewUploadService(photos, spacesService)
	moderationService := webservices.NewModerationService(photos, spacesService)

	app := fiber.New(fiber.Config{
		AppName:      "SnapQuest",
		ServerHeader: "SnapQuest",
		BodyLimit:    webservices.MaxUploadBytes + 1<<20, // multipart overhead headroom
		ErrorHandler: middleware.CustomErrorHandler,
	})

	webApp := &handlers.WebApp{
		Config:            webCfg,
		DB:                db,
		Devices:           devices,
		Accounts:          accounts,
		Photos:            photos,
		Quests:            quests,
		Progress:          progress,
		SessionService:    sessionService,
		AuthService:       authService,
		UploadService:     uploadService,
		ModerationService: moderationService,
		Version:           version,
		Commit:            commit,
	}

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Web.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Cookie",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware())
	app.Use(middleware.DeviceContext(webApp))

	setupRoutes(app, webApp)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	slog.Info("Starting server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	db.Close()
	slog.Info("Shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/healthz", handlers.HealthCheck(webApp))

	// Public feed and identity
	app.Get("/", handlers.Feed(webApp))
	app.Get("/toilet-app", handlers.AppFeed(webApp))
	app.Get("/authorize", handlers.AuthorizePage(webApp))
	app.Post("/authorize", handlers.Authorize(webApp))
	app.Post("/login", handlers.Login(webApp))
	app.Get("/logout", handlers.Logout(webApp))

	// Uploads gate themselves on device permission or a bound account
	app.Post("/upload", handlers.Upload(webApp))

	// Admin surface
	admin := app.Group("/admin")
	admin.Use(middleware.AuthRequired(webApp))
	admin.Use(middleware.AdminRequired())

	admin.Get("/", handlers.AdminDashboard(webApp))

	admin.Post("/pending/:id/approve",
		middleware.AccessLogMiddleware("approve_photo"),
		handlers.ApprovePending(webApp))
	admin.Post("/pending/:id/reject",
		middleware.AccessLogMiddleware("reject_photo"),
		handlers.RejectPending(webApp))
	admin.Post("/photo/:id/delete",
		middleware.AccessLogMiddleware("delete_photo"),
		handlers.GalleryPhotoDelete(webApp))

	admin.Post("/users/create",
		middleware.AccessLogMiddleware("create_user"),
		handlers.UsersCreate(webApp))
	admin.Post("/users/:id/delete",
		middleware.AccessLogMiddleware("delete_user"),
		handlers.UsersDelete(webApp))

	admin.Post("/quests/create",
		middleware.AccessLogMiddleware("create_quest"),
		handlers.QuestsCreate(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
