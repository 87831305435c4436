package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"gridbase/internal/admin"
	"gridbase/internal/auth"
	"gridbase/internal/config"
	"gridbase/internal/engine"
	"gridbase/internal/schema"
	"gridbase/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config; a missing jwt_secret is fatal here, never defaulted.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Connect to the storage engine
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Provision reserved tables and recover the bootstrap admin
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Engine services, constructed once and shared by all requests
	catalog := schema.NewCatalog(db)
	executor := engine.NewExecutor(db, catalog)
	authSvc := auth.NewService(db, cfg.JWTSecret)

	// 5. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: engine.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 6. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 7. Auth routes first: login is the only open endpoint
	gate := auth.Gate(authSvc)
	auth.RegisterAuthRoutes(app, auth.NewHandler(authSvc), gate)

	// 8. Schema management and raw-query routes
	admin.RegisterAdminRoutes(app, admin.NewHandler(executor), gate)

	// 9. Generated per-table CRUD routes
	engine.RegisterDataRoutes(app, engine.NewHandler(executor), gate)

	// 10. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}
