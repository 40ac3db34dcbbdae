package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/auth"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/jwt"
)

const (
	PhotoBackendLocal = "local"
	PhotoBackendS3    = "s3"
)

type AppConfig struct {
	// Server
	HTTPAddr        string
	Env             string
	BaseURL         string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is the client address.
	TrustedProxies []string

	// Admin guard
	AdminSecret     string
	AdminSecretHash string
	AuthMode        auth.Mode
	SessionTTL      time.Duration
	CookieSecure    bool
	JWT             jwt.Config

	// Redis (sessions, token blacklist, login rate limit); empty means in-memory
	RedisAddr string
	RedisPass string

	// Records
	AgentsFile string
	IDScheme   string

	// Photos
	PhotoBackend      string
	UploadDir         string
	PhotoMaxBytes     int64
	PhotoAllowedTypes []string
	S3                S3Config

	// Cards
	QRSize int
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
	Prefix    string
}

// Load loads environment variables into AppConfig. It only fails on values
// that cannot be parsed; Validate checks the combination.
func Load() (AppConfig, error) {
	var errs []error

	sessionTTL := getEnvDuration("SESSION_TTL", 12*time.Hour, &errs)

	cfg := AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":10000"),
		Env:             getEnv("APP_ENV", "production"),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		CORSOrigins:     getEnvSlice("CORS_ORIGINS", nil),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second, &errs),
		TrustedProxies:  getEnvSlice("TRUSTED_PROXIES", nil),

		AdminSecret:     os.Getenv("ADMIN_SECRET"),
		AdminSecretHash: os.Getenv("ADMIN_SECRET_HASH"),
		AuthMode:        auth.Mode(strings.ToLower(getEnv("AUTH_MODE", string(auth.ModeSession)))),
		SessionTTL:      sessionTTL,
		CookieSecure:    getEnvBool("COOKIE_SECURE", false, &errs),
		JWT: jwt.Config{
			Secret:   os.Getenv("TOKEN_SIGNING_KEY"),
			PrivPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
			PubPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
			Issuer:   getEnv("JWT_ISSUER", "pay4you-cards"),
			Audience: getEnv("JWT_AUDIENCE", "pay4you-admin"),
			TTL:      sessionTTL,
			KID:      getEnv("JWT_KID", "cards-key"),
		},

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),

		AgentsFile: getEnv("AGENTS_FILE", "agents.json"),
		IDScheme:   strings.ToLower(getEnv("ID_SCHEME", address.SchemeSlug)),

		PhotoBackend:      strings.ToLower(getEnv("PHOTO_BACKEND", PhotoBackendLocal)),
		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),
		PhotoMaxBytes:     getEnvInt64("PHOTO_MAX_BYTES", 5<<20, &errs),
		PhotoAllowedTypes: getEnvSlice("PHOTO_ALLOWED_TYPES", nil),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			PathStyle: getEnvBool("S3_PATH_STYLE", false, &errs),
			Prefix:    os.Getenv("S3_PREFIX"),
		},

		QRSize: int(getEnvInt64("QR_SIZE", 256, &errs)),
	}

	return cfg, errors.Join(errs...)
}

// Validate fails fast on settings the server cannot run with.
func (c AppConfig) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute http(s) URL", c.BaseURL))
	}

	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
			}
		}
	}

	if c.AdminSecret == "" && c.AdminSecretHash == "" {
		errs = append(errs, errors.New("ADMIN_SECRET or ADMIN_SECRET_HASH is required"))
	}

	if _, err := address.New(c.IDScheme); err != nil {
		errs = append(errs, fmt.Errorf("ID_SCHEME: %w", err))
	}

	if !c.AuthMode.Valid() {
		errs = append(errs, fmt.Errorf("AUTH_MODE %q must be session or token", c.AuthMode))
	}
	if c.AuthMode == auth.ModeToken {
		hasKeys := c.JWT.PrivPath != "" && c.JWT.PubPath != ""
		if !hasKeys && len(c.JWT.Secret) < 32 {
			errs = append(errs, errors.New("token mode needs TOKEN_SIGNING_KEY (32+ bytes) or JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH"))
		}
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.PhotoBackend {
	case PhotoBackendLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the local photo backend"))
		}
	case PhotoBackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 photo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("PHOTO_BACKEND %q must be local or s3", c.PhotoBackend))
	}
	if c.PhotoMaxBytes <= 0 {
		errs = append(errs, errors.New("PHOTO_MAX_BYTES must be positive"))
	}

	if c.AgentsFile == "" {
		errs = append(errs, errors.New("AGENTS_FILE is required"))
	}
	if c.QRSize <= 0 {
		errs = append(errs, errors.New("QR_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func getEnvInt64(key string, fallback int64, errs *[]error) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}
