package router

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/constants"
	"github.com/nativeai/nativechat/internal/pkg/identity"
	"github.com/nativeai/nativechat/internal/pkg/middleware"
)

type HttpRouter struct {
	cfg      *config.Config
	verifier identity.Verifier
}

func NewHttpRouter(cfg *config.Config, verifier identity.Verifier) *HttpRouter {
	return &HttpRouter{cfg: cfg, verifier: verifier}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	// CORS for the dev interface; production serves the build itself
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173, http://localhost:3000, http://127.0.0.1:5173",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Resolve the identity on every request before any handler runs
	app.Use(middleware.UserContextMiddleware(h.cfg, h.verifier))

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// InterfaceRouter serves the SPA build when it exists and falls back to
// index.html for client-side routes. It must install after the API routes
// so the catch-all does not shadow them.
type InterfaceRouter struct{}

func NewInterfaceRouter() *InterfaceRouter {
	return &InterfaceRouter{}
}

func (h *InterfaceRouter) InstallRouter(app *fiber.App) {
	indexFile := filepath.Join(constants.InterfaceDir, "index.html")
	if _, err := os.Stat(indexFile); os.IsNotExist(err) {
		return
	}

	app.Static("/", constants.InterfaceDir, fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	app.Get("/*", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.SendFile(indexFile)
	})
}
