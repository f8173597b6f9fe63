package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/nativeai/nativechat/internal/pkg/cache"
)

const verifyCacheTTL = 5 * time.Minute

// CachedVerifier keeps recent verification results in Redis so the hot path
// does not hit the identity provider on every request. Cache failures are
// ignored; the wrapped verifier is always the source of truth.
type CachedVerifier struct {
	inner Verifier
}

func NewCachedVerifier(inner Verifier) *CachedVerifier {
	return &CachedVerifier{inner: inner}
}

func cacheKeyForToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:verify:" + hex.EncodeToString(sum[:])
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	key := cacheKeyForToken(token)
	if raw, err := cache.Get(key); err == nil && raw != "" {
		var id Identity
		if err := json.Unmarshal([]byte(raw), &id); err == nil && id.Subject != "" {
			return id, nil
		}
	}

	id, err := v.inner.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	if raw, err := json.Marshal(id); err == nil {
		_ = cache.Set(key, string(raw), verifyCacheTTL)
	}
	return id, nil
}
