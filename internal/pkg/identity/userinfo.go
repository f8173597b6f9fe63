package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// UserinfoVerifier validates bearer tokens by calling the identity provider's
// userinfo endpoint. Any failure, transport or HTTP, folds into
// ErrUnauthenticated.
type UserinfoVerifier struct {
	URL        string
	HTTPClient *http.Client
}

type userinfoResponse struct {
	Sub    string `json:"sub"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func NewUserinfoVerifier(url string, timeout time.Duration) *UserinfoVerifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &UserinfoVerifier{
		URL: strings.TrimSpace(url),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (v *UserinfoVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" || v.URL == "" {
		return Identity{}, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Identity{}, ErrUnauthenticated
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	var ui userinfoResponse
	if err := json.Unmarshal(body, &ui); err != nil {
		return Identity{}, ErrUnauthenticated
	}

	subject := ui.Sub
	if subject == "" {
		subject = ui.UserID
	}
	if subject == "" {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{Subject: subject, Email: strings.ToLower(strings.TrimSpace(ui.Email))}, nil
}
