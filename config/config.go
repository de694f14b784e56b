package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Limits   LimitsConfig
	Stripe   StripeConfig
	Email    EmailConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	Debug              bool   // enables guard-chain timing logs
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// LimitsConfig holds tenant resource caps and abuse-prevention knobs.
type LimitsConfig struct {
	MaxOrgsPerUser         int
	MaxMembersPerOrg       int
	MaxProjectsPerOrg      int
	MaxPendingInvites      int
	InviteCooldown         time.Duration
	InviteExpiry           time.Duration
	StartingCredits        int
	RefillCredits          int           // refill target for primary orgs
	RefillInterval         time.Duration // minimum gap between free refills
	LowCreditThreshold     int           // reminder fires when credits drop below
	RenewalCreditThreshold int           // renewal allowed only below this
	RenewalLookahead       time.Duration // renewal-reminder window before period end
	PurgeAfter             time.Duration // hard-delete soft-deleted orgs after this
}

// StripeConfig for payments.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	PortalURL  string
}

// EmailConfig for SMTP delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// AdminConfig holds the platform-admin allow-list.
type AdminConfig struct {
	Emails []string // exact-match emails allowed on the admin surface
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			Debug:              getEnv("DEBUG", "") == "true",
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/saas?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "saas"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Limits: LimitsConfig{
			MaxOrgsPerUser:         getEnvInt("LIMIT_MAX_ORGS_PER_USER", 5),
			MaxMembersPerOrg:       getEnvInt("LIMIT_MAX_MEMBERS_PER_ORG", 10),
			MaxProjectsPerOrg:      getEnvInt("LIMIT_MAX_PROJECTS_PER_ORG", 10),
			MaxPendingInvites:      getEnvInt("LIMIT_MAX_PENDING_INVITES", 10),
			InviteCooldown:         getEnvDuration("LIMIT_INVITE_COOLDOWN", 60*time.Second),
			InviteExpiry:           getEnvDuration("LIMIT_INVITE_EXPIRY", 7*24*time.Hour),
			StartingCredits:        getEnvInt("LIMIT_STARTING_CREDITS", 5),
			RefillCredits:          getEnvInt("LIMIT_REFILL_CREDITS", 5),
			RefillInterval:         getEnvDuration("LIMIT_REFILL_INTERVAL", 30*24*time.Hour),
			LowCreditThreshold:     getEnvInt("LIMIT_LOW_CREDIT_THRESHOLD", 2),
			RenewalCreditThreshold: getEnvInt("LIMIT_RENEWAL_CREDIT_THRESHOLD", 3),
			RenewalLookahead:       getEnvDuration("LIMIT_RENEWAL_LOOKAHEAD", 72*time.Hour),
			PurgeAfter:             getEnvDuration("LIMIT_PURGE_AFTER", 30*24*time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
			SuccessURL: getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CancelURL:  getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/billing"),
			PortalURL:  getEnv("STRIPE_PORTAL_RETURN_URL", "http://localhost:3000/billing"),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Nimbus"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Admin: AdminConfig{
			Emails: splitTrim(getEnv("PLATFORM_ADMIN_EMAILS", ""), ","),
		},
	}
	return cfg, nil
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
