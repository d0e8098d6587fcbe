package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/conversa/conversa-backend/internal/agent"
	openaiagent "github.com/conversa/conversa-backend/internal/agent/openai"
	"github.com/conversa/conversa-backend/internal/api"
	"github.com/conversa/conversa-backend/internal/config"
	"github.com/conversa/conversa-backend/internal/database"
	"github.com/conversa/conversa-backend/internal/repository/postgres"
	"github.com/conversa/conversa-backend/internal/services"
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	// Local .env is a convenience; the system environment always wins.
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Repositories
	sessionRepo := postgres.NewSessionRepository(db.DB)
	messageRepo := postgres.NewMessageRepository(db.DB)
	summaryRepo := postgres.NewSummaryRepository(db.DB)

	// Remote agent and invocation coordinator
	remote, err := openaiagent.NewAgent(cfg.Agent)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize remote agent")
	}
	coordinator := agent.NewCoordinator(remote, log)

	// Services
	chatService := services.NewChatService(
		sessionRepo,
		messageRepo,
		summaryRepo,
		coordinator,
		services.NewHeuristicEstimator(cfg.Chat.TokenDivisor),
		cfg.Chat.ContextTokenBudget,
		log,
	)
	svc := services.NewServices(chatService)

	app := fiber.New(fiber.Config{
		AppName:      "Conversa Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getOrigins(cfg),
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	api.SetupRoutes(app, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Conversa backend starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins(cfg *config.Config) string {
	if cfg.Server.CORSOrigins != "" {
		return cfg.Server.CORSOrigins
	}
	return "http://localhost:5174,http://localhost:3000,http://localhost:4200"
}
