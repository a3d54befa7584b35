package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"unimail/config"
	controller "unimail/controllers"
	"unimail/inbox"
	"unimail/middleware"
	"unimail/models"
	"unimail/provider"
	"unimail/routes"
	"unimail/storage"
	"unimail/worker"
)

func main() {
	logger := log.New(os.Stdout, "UNIMAIL: ", log.Ldate|log.Ltime|log.Lshortfile)

	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	var rdb *redis.Client
	if config.AppConfig.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
	}

	// Provider clients share the cached-token store, split per provider
	gmailClient := provider.NewGmailClient(storage.NewTokens(config.DB, models.ProviderGmail))
	outlookClient := provider.NewOutlookClient(storage.NewTokens(config.DB, models.ProviderOutlook))
	providers := map[models.ProviderKind]inbox.Mailbox{
		models.ProviderGmail:   gmailClient,
		models.ProviderOutlook: outlookClient,
	}

	svc := inbox.NewService(
		inbox.NewNormalizer(),
		providers,
		inbox.NewPaginator(config.AppConfig.PageSize),
	)
	// The service doubles as the composer's draft saver, so it is wired after
	harvester := inbox.NewHarvester(inbox.NewHTTPFetcher(config.AppConfig.AssetBaseURL))
	svc.SetComposer(inbox.NewComposer(harvester, svc, uuid.NewString))
	svc.SetStarFlags(storage.NewStarFlags(config.DB))

	accountCache := storage.NewAccountCache(config.DB)
	snoozes := storage.NewSnoozes(config.DB)
	var newMailFlags *storage.NewMailFlags
	if rdb != nil {
		newMailFlags = storage.NewNewMailFlags(rdb)
	}

	hub := controller.NewNotifyHub(log.New(os.Stdout, "WS: ", log.LstdFlags))
	inboxController := controller.NewInboxController(svc, snoozes, newMailFlags, log.New(os.Stdout, "INBOX: ", log.LstdFlags))
	composeController := controller.NewComposeController(svc, log.New(os.Stdout, "COMPOSE: ", log.LstdFlags))
	accountController := controller.NewAccountController(accountCache, providers, log.New(os.Stdout, "ACCOUNT: ", log.LstdFlags))

	app := fiber.New()
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if newMailFlags != nil {
		pollWorker := worker.NewPollWorker(
			gmailClient,
			newMailFlags,
			hub,
			svc.Store(),
			snoozes,
			func() []models.Account {
				accounts, err := accountCache.LoadAll()
				if err != nil {
					logger.Printf("poll account list failed: %v", err)
					return nil
				}
				return accounts
			},
			config.AppConfig.PollInterval,
			log.New(os.Stdout, "POLL: ", log.LstdFlags),
		)
		go pollWorker.Run(ctx)
	}

	routes.SetupInboxRoutes(app, inboxController, composeController, accountController, hub)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
