package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/nativeai/nativechat/app/repository"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/identity"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the bearer credential into a complete user
// context for every request. The lookup is lazy-creating: a valid token whose
// subject has never been seen before gets a user row on the spot. Requests
// without a usable credential pass through as anonymous; handlers that need
// auth gate with RequireAuth.
func UserContextMiddleware(cfg *config.Config, verifier identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := identity.TokenFromAuthorizationHeader(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			setAnonymous(c)
			return c.Next()
		}

		ctx, cancel := contextWithTimeout(c, cfg.IdentityTimeout)
		defer cancel()

		ident, err := verifier.Verify(ctx, token)
		if err != nil {
			// Any verification failure means anonymous. The 401 with a
			// uniform message comes from RequireAuth.
			setAnonymous(c)
			return c.Next()
		}

		users := repository.GetGlobalFactory().GetUserRepository()
		user, err := users.GetOrCreateBySubject(ident.Subject, ident.Email)
		if err != nil {
			log.Errorf("user lookup for subject failed: %v", err)
			setAnonymous(c)
			return c.Next()
		}
		if err := users.TouchLastSeen(user.ID); err != nil {
			log.Debugf("last-seen refresh for user %d failed: %v", user.ID, err)
		}

		userCtx := usercontext.UserContext{
			UserID:     user.ID,
			Subject:    user.Subject,
			Email:      user.Email,
			IsLoggedIn: true,
			IsAdmin:    cfg.IsAdminEmail(user.Email),
			Plan:       user.Plan,
		}
		usercontext.SetUserContext(c, userCtx)
		c.Locals(usercontext.AuthKey, true)
		c.Locals(usercontext.KeyUserID, user.ID)
		c.Locals(usercontext.KeyEmail, user.Email)
		c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

		return c.Next()
	}
}

func setAnonymous(c *fiber.Ctx) {
	usercontext.SetUserContext(c, usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.AuthKey, false)
	c.Locals(usercontext.KeyIsAdmin, false)
}
