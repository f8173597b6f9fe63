package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/nativeai/nativechat/internal/pkg/env"
)

const defaultSystemPrompt = "You are Native AI, a helpful and friendly assistant. Answer clearly and concisely."

// Config is the immutable runtime configuration, built once at process start
// and handed to every component. Services never read environment variables
// directly.
type Config struct {
	AppHost string
	AppPort string
	Dev     bool

	SystemPrompt    string
	ChatModel       string
	TranscribeModel string
	TranslateModel  string

	CompletionAPIKey  string
	CompletionBaseURL string

	IdentityJWTSecret   string
	IdentityUserinfoURL string

	AdminEmails []string

	FreeWeeklyTokenCap int64
	ProMonthlyTokenCap int64
	TopUpTokens        int64

	MaxPromptChars int
	MaxHistoryMsgs int
	MaxFileBytes   int64
	MaxFiles       int

	IdentityTimeout   time.Duration
	StoreTimeout      time.Duration
	ChatTimeout       time.Duration
	TranscribeTimeout time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProPriceID    string
	StripeTopUpPriceID  string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	S3Enabled         bool
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3EndpointURL     string

	// DevInstantGrant lets checkout grant entitlements immediately without a
	// payment provider round trip. Dev environments only.
	DevInstantGrant bool
}

// Load builds a Config from the loaded environment. env.SetupEnvFile must run
// first.
func Load() *Config {
	return &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),
		Dev:     env.IsDev(),

		SystemPrompt:    env.GetEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		ChatModel:       env.GetEnv("CHAT_MODEL", "mistral-small-latest"),
		TranscribeModel: env.GetEnv("TRANSCRIBE_MODEL", "voxtral-mini-latest"),
		TranslateModel:  env.GetEnv("TRANSLATE_MODEL", env.GetEnv("CHAT_MODEL", "mistral-small-latest")),

		CompletionAPIKey:  env.GetEnv("COMPLETION_API_KEY", ""),
		CompletionBaseURL: env.GetEnv("COMPLETION_BASE_URL", "https://api.mistral.ai/v1"),

		IdentityJWTSecret:   env.GetEnv("IDENTITY_JWT_SECRET", ""),
		IdentityUserinfoURL: env.GetEnv("IDENTITY_USERINFO_URL", ""),

		AdminEmails: splitList(env.GetEnv("ADMIN_EMAILS", "")),

		FreeWeeklyTokenCap: getInt64("FREE_WEEKLY_TOKEN_CAP", 25000),
		ProMonthlyTokenCap: getInt64("PRO_MONTHLY_TOKEN_CAP", 500000),
		TopUpTokens:        getInt64("TOPUP_TOKENS", 250000),

		MaxPromptChars: int(getInt64("MAX_PROMPT_CHARS", 60000)),
		MaxHistoryMsgs: int(getInt64("MAX_HISTORY_MESSAGES", 200)),
		MaxFileBytes:   getInt64("MAX_FILE_BYTES", 10*1024*1024),
		MaxFiles:       int(getInt64("MAX_FILES", 5)),

		IdentityTimeout:   getDuration("IDENTITY_TIMEOUT", 15*time.Second),
		StoreTimeout:      getDuration("STORE_TIMEOUT", 20*time.Second),
		ChatTimeout:       getDuration("CHAT_TIMEOUT", 60*time.Second),
		TranscribeTimeout: getDuration("TRANSCRIBE_TIMEOUT", 90*time.Second),

		StripeSecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProPriceID:    env.GetEnv("STRIPE_PRO_PRICE_ID", ""),
		StripeTopUpPriceID:  env.GetEnv("STRIPE_TOPUP_PRICE_ID", ""),
		CheckoutSuccessURL:  env.GetEnv("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:   env.GetEnv("CHECKOUT_CANCEL_URL", ""),

		S3Enabled:         env.GetEnv("S3_ATTACHMENTS_ENABLED", "false") == "true",
		S3AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Region:          env.GetEnv("S3_REGION", "us-east-1"),
		S3Bucket:          env.GetEnv("S3_BUCKET_NAME", ""),
		S3EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),

		DevInstantGrant: env.IsDev() && env.GetEnv("DEV_INSTANT_GRANT", "false") == "true",
	}
}

// IsAdminEmail reports whether an email is on the admin allow-list.
// Comparison is case-insensitive; an empty allow-list admits nobody.
func (c *Config) IsAdminEmail(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if e == admin {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getInt64(key string, def int64) int64 {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
