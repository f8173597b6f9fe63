package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
)

func TestTokenFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Bearer abc123", want: "abc123"},
		{in: "bearer abc123", want: "abc123"},
		{in: "Bearer   abc123  ", want: "abc123"},
		{in: "Basic abc123", want: ""},
		{in: "abc123", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TokenFromAuthorizationHeader(tt.in))
	}
}

func signToken(t *testing.T, secret, subject, email string, expires time.Time) string {
	t.Helper()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("top-secret")
	ctx := context.Background()

	token := signToken(t, "top-secret", "user-42", "user@example.com", time.Now().Add(time.Hour))
	id, err := v.Verify(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, "user-42", id.Subject)
	assert.Equal(t, "user@example.com", id.Email)

	_, err = v.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	wrongKey := signToken(t, "other-secret", "user-42", "", time.Now().Add(time.Hour))
	_, err = v.Verify(ctx, wrongKey)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	expired := signToken(t, "top-secret", "user-42", "", time.Now().Add(-time.Hour))
	_, err = v.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noSubject := signToken(t, "top-secret", "", "", time.Now().Add(time.Hour))
	_, err = v.Verify(ctx, noSubject)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserinfoVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"sub":"user-7","email":"Person@Example.COM"}`))
		case "Bearer odd-shape":
			w.Write([]byte(`{"unexpected":true}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewUserinfoVerifier(srv.URL, 5*time.Second)
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	assert.NoError(t, err)
	assert.Equal(t, "user-7", id.Subject)
	assert.Equal(t, "person@example.com", id.Email)

	_, err = v.Verify(ctx, "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// A 200 with no usable subject is still unauthenticated.
	_, err = v.Verify(ctx, "odd-shape")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Provider down folds into the same error.
	down := NewUserinfoVerifier("http://127.0.0.1:1", 500*time.Millisecond)
	_, err = down.Verify(ctx, "good")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
