package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	cron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gdbrns/go-waha-admin/internal"
	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/pkg/auth"
	"github.com/gdbrns/go-waha-admin/pkg/env"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
)

type Server struct {
	Address string
	Port    string
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		Long: `Run the admin HTTP server. Default settings are seeded on start, and the
session is started when auto-start is enabled and WAHA reports it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	store, err := internal.OpenSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	authConfig := auth.ConfigFromEnv()
	debug := internal.DebugFileFromEnv()
	deps := internal.Deps{
		Settings:     store,
		Transport:    internal.TransportFromEnv(),
		QR:           qr.New(internal.QROptionsFromEnv(debug)),
		Debug:        debug,
		Auth:         authConfig,
		Nonces:       auth.NewNonces(authConfig.NonceSecret, authConfig.NonceTTL),
		RestartDelay: env.GetEnvDurationOrDefault("WAHA_RESTART_DELAY", 2*time.Second),
	}

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
		BodyLimit:    router.BodyLimitBytes(),
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + auth.NonceHeader,
		AllowMethods: "GET,POST",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app, deps)

	// Router Not Found Handler
	app.Use(func(c *fiber.Ctx) error {
		return router.ResponseNotFound(c, "Route not found")
	})

	// Running Startup Tasks
	ctxStartup, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	internal.Startup(ctxStartup, deps)
	cancelStartup()

	// Running Routines Tasks
	internal.Routines(c, deps)

	// Get Server Configuration with defaults
	var serverConfig Server

	// SERVER_ADDRESS: default "0.0.0.0" (all interfaces)
	serverConfig.Address = env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")

	// SERVER_PORT: default "7001"
	serverConfig.Port = env.GetEnvStringOrDefault("SERVER_PORT", "7001")

	// Start Server
	go func() {
		if err := app.Listen(serverConfig.Address + ":" + serverConfig.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Stop QR countdowns and cron jobs
	deps.QR.Cancel()
	<-c.Stop().Done()

	// Try To Shutdown Server
	return app.ShutdownWithContext(ctxShutdown)
}
