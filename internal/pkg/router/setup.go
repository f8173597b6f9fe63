package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/identity"
)

// Router installs a group of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups. HttpRouter goes first so the global
// user context middleware runs before any API handler; the interface
// catch-all goes last so it cannot shadow API routes.
func InstallRouter(app *fiber.App, cfg *config.Config, verifier identity.Verifier) {
	setup(app, NewHttpRouter(cfg, verifier), NewApiRouter(cfg), NewInterfaceRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
