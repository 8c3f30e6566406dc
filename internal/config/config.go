package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenTransport selects how issued token pairs are rendered to clients.
const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"
)

// Config holds all runtime configuration loaded from environment variables.
// It is constructed once in main and injected; nothing reads the environment
// after startup.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// Empty RedisAddr selects the in-process blacklist and rate-limit
	// counters; set it for multi-instance deployments.
	RedisAddr     string
	RedisPassword string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RotateRefresh     bool

	OTPTTL         time.Duration
	OTPMaxAttempts int

	TokenTransport string
	Cookie         CookieConfig

	RateLimits RateLimits

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string

	NotifyTimeout   time.Duration
	NotifyQueueSize int

	AllowedOrigins []string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Verifications string
}

// CookieConfig holds the attributes applied to auth cookies in cookie
// transport mode.
type CookieConfig struct {
	Secure   bool
	SameSite string // "lax" | "strict" | "none"
	Path     string
}

// RateLimit is one scope's fixed-window budget.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// RateLimits holds the per-scope budgets keyed by normalized email.
type RateLimits struct {
	Login     RateLimit
	ResendOTP RateLimit
	VerifyOTP RateLimit
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "email_verifications"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AccessTokenTTL:    time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 5)) * time.Minute,
		RefreshTokenTTL:   time.Duration(getEnvInt("REFRESH_TOKEN_TTL_DAYS", 5)) * 24 * time.Hour,
		RotateRefresh:     getEnvBool("ROTATE_REFRESH", true),

		OTPTTL:         time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),

		TokenTransport: getEnv("TOKEN_TRANSPORT", TransportBearer),
		Cookie: CookieConfig{
			Secure:   getEnvBool("COOKIE_SECURE", true),
			SameSite: getEnv("COOKIE_SAMESITE", "lax"),
			Path:     getEnv("COOKIE_PATH", "/"),
		},

		RateLimits: RateLimits{
			Login:     RateLimit{Limit: getEnvInt("RATE_LOGIN_LIMIT", 40), Window: getEnvDuration("RATE_LOGIN_WINDOW", time.Hour)},
			ResendOTP: RateLimit{Limit: getEnvInt("RATE_RESEND_LIMIT", 3), Window: getEnvDuration("RATE_RESEND_WINDOW", time.Minute)},
			VerifyOTP: RateLimit{Limit: getEnvInt("RATE_VERIFY_LIMIT", 40), Window: getEnvDuration("RATE_VERIFY_WINDOW", time.Hour)},
		},

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@farmhub.example"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		NotifyTimeout:   getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 64),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
