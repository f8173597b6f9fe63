package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/nativeai/nativechat/internal/pkg/config"
)

// ErrUnauthenticated covers every credential failure: missing token, bad
// scheme, provider rejection, provider outage. Callers get no finer detail so
// that validation internals never leak to clients.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Identity is the verified caller.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// Verifier validates a bearer credential against the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// NewVerifierFromConfig picks the verification strategy: a shared-secret JWT
// check when IDENTITY_JWT_SECRET is set, otherwise a userinfo HTTP call.
func NewVerifierFromConfig(cfg *config.Config) Verifier {
	if cfg.IdentityJWTSecret != "" {
		return NewJWTVerifier(cfg.IdentityJWTSecret)
	}
	return NewUserinfoVerifier(cfg.IdentityUserinfoURL, cfg.IdentityTimeout)
}

// TokenFromAuthorizationHeader extracts the bearer credential from an
// Authorization header value. Empty result means no usable credential.
func TokenFromAuthorizationHeader(header string) string {
	h := strings.TrimSpace(header)
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
