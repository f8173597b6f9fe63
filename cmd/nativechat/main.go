package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nativeai/nativechat/app/controllers"
	"github.com/nativeai/nativechat/app/repository"
	"github.com/nativeai/nativechat/internal/pkg/attachments"
	"github.com/nativeai/nativechat/internal/pkg/billing"
	"github.com/nativeai/nativechat/internal/pkg/cache"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/database"
	"github.com/nativeai/nativechat/internal/pkg/entitlements"
	"github.com/nativeai/nativechat/internal/pkg/env"
	"github.com/nativeai/nativechat/internal/pkg/identity"
	"github.com/nativeai/nativechat/internal/pkg/llm"
	"github.com/nativeai/nativechat/internal/pkg/router"
)

func main() {
	app, cfg := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *config.Config) {
	env.SetupEnvFile()
	cfg := config.Load()

	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	repository.SetStoreTimeout(cfg.StoreTimeout)

	store := repository.NewEntitlementStore(
		repository.GetGlobalFactory().GetUserRepository(),
		repository.GetGlobalFactory().GetUsageRepository(),
	)
	ledger := entitlements.NewLedger(store, cfg)
	client := llm.NewClientFromConfig(cfg)
	billingService := billing.NewServiceFromDB(database.GetDB(), ledger, cfg)
	gateway := billing.NewStripeGateway(cfg)
	attachStore := attachments.NewStore(cfg)
	var verifier identity.Verifier = identity.NewCachedVerifier(identity.NewVerifierFromConfig(cfg))

	controllers.Setup(cfg, ledger, client, billingService, gateway, attachStore)

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxFileBytes)*cfg.MaxFiles + 1024*1024,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, cfg, verifier)

	return app, cfg
}
