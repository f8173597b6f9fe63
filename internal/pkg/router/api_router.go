package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/nativeai/nativechat/app/controllers"
	"github.com/nativeai/nativechat/internal/pkg/cache"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/constants"
	"github.com/nativeai/nativechat/internal/pkg/env"
	"github.com/nativeai/nativechat/internal/pkg/middleware"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

type ApiRouter struct {
	cfg *config.Config
}

func NewApiRouter(cfg *config.Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
		KeyGenerator: func(c *fiber.Ctx) string {
			// Rate-limit per user where possible, per IP otherwise
			if user := usercontext.GetUserContext(c); user.IsLoggedIn {
				return "user:" + strconv.FormatUint(uint64(user.UserID), 10)
			}
			return c.IP()
		},
	}))

	// Public
	api.Get(constants.BillingRoute+"/plans", controllers.HandleBillingPlans)
	api.Post(constants.BillingRoute+"/webhook", controllers.HandleBillingWebhook)

	// Authenticated
	api.Post(constants.ChatRoute, middleware.RequireAuth, controllers.HandleChat)
	api.Post(constants.TranscribeRoute, middleware.RequireAuth, controllers.HandleTranscribe)
	api.Get(constants.UsageRoute, middleware.RequireAuth, controllers.HandleUsage)
	api.Get(constants.ConversationsRoute, middleware.RequireAuth, controllers.HandleListConversations)
	api.Get(constants.ConversationsRoute+"/:id/messages", middleware.RequireAuth, controllers.HandleGetConversationMessages)
	api.Post(constants.BillingRoute+"/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)

	// Admin
	admin := api.Group(constants.AdminRoute, middleware.RequireAdmin)
	admin.Post("/plan", controllers.HandleAdminSetPlan)
	admin.Post("/grant", controllers.HandleAdminGrant)
	admin.Get("/stats", controllers.HandleAdminStats)
}

// newLimiterStorage backs the rate limiter with redis so limits hold across
// instances. Derives the connection from the cache client; database 1 keeps
// limiter keys out of the cache keyspace.
func newLimiterStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
