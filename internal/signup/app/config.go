package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/aussiebroadwan/signup/internal/signup/notify"
	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database path (default: ./signup.db)
	DatabaseURL    string // Postgres connection URL, required for the postgres driver

	PepperFile     string        // Password hashing pepper, created on first start (default: ./pepper)
	SigningKeyFile string        // Ed25519 PEM key for registration tokens, created on first start (default: ./signing.pem)
	KeyID          string        // kid published in the JWKS (default: signup-1)
	Issuer         string        // iss claim of registration tokens (default: signup)
	TokenTTL       time.Duration // Registration token lifetime (default: 30m)
	PasscodeTTL    time.Duration // Passcode lifetime, 0 for no expiry (default: 0)

	PasscodeMaxAttempts int // Verify calls allowed per passcode (default: 5)

	NotifyDriver  string         // log, twilio or amqp (default: log)
	NotifyChannel domain.Channel // whatsapp or sms (default: whatsapp)
	NotifyTimeout time.Duration  // Bound on a single provider call (default: 10s)

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string // Sender in E.164 without the whatsapp: prefix

	AMQPURL      string
	AMQPExchange string // (default: signup.notifications)

	DispatchInterval      time.Duration // Outbox sweep interval (default: 15s)
	DispatchBatchSize     int           // Rows per sweep (default: 20)
	DispatchMaxAttempts   int           // Sends before a row is failed (default: 5)
	DispatchRetryDelay    time.Duration // First retry delay, doubled per attempt (default: 30s)
	DispatchMaxRetryDelay time.Duration // Retry delay cap (default: 30m)
	OutboxRetention       time.Duration // How long sent rows are kept, 0 forever (default: 168h)

	RedisAddr     string // Enables shared rate limiting when set
	RedisPassword string
	RedisDB       int
}

// LoadConfig reads an optional .env file and then the environment. Values
// already set in the environment win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()
	httpx.LoadRateLimitsFromEnv()

	return Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DatabaseDriver: getEnvOrDefault("SIGNUP_DATABASE_DRIVER", "sqlite"),
		DatabaseFile:   getEnvOrDefault("SIGNUP_DATABASE_FILE", "signup.db"),
		DatabaseURL:    os.Getenv("SIGNUP_DATABASE_URL"),

		PepperFile:     getEnvOrDefault("SIGNUP_PEPPER_FILE", "pepper"),
		SigningKeyFile: getEnvOrDefault("SIGNUP_SIGNING_KEY_FILE", "signing.pem"),
		KeyID:          getEnvOrDefault("SIGNUP_KEY_ID", "signup-1"),
		Issuer:         getEnvOrDefault("SIGNUP_ISSUER", "signup"),
		TokenTTL:       getEnvDurationOrDefault("SIGNUP_TOKEN_TTL", 30*time.Minute),
		PasscodeTTL:    getEnvDurationOrDefault("SIGNUP_PASSCODE_TTL", 0),

		PasscodeMaxAttempts: getEnvIntOrDefault("SIGNUP_PASSCODE_MAX_ATTEMPTS", service.DefaultPasscodeMaxAttempts),

		NotifyDriver:  getEnvOrDefault("NOTIFY_DRIVER", "log"),
		NotifyChannel: domain.Channel(getEnvOrDefault("NOTIFY_CHANNEL", string(domain.ChannelWhatsApp))),
		NotifyTimeout: getEnvDurationOrDefault("NOTIFY_TIMEOUT", 10*time.Second),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnvOrDefault("AMQP_EXCHANGE", notify.DefaultAMQPExchange),

		DispatchInterval:      getEnvDurationOrDefault("DISPATCH_INTERVAL", 15*time.Second),
		DispatchBatchSize:     getEnvIntOrDefault("DISPATCH_BATCH_SIZE", 20),
		DispatchMaxAttempts:   getEnvIntOrDefault("DISPATCH_MAX_ATTEMPTS", 5),
		DispatchRetryDelay:    getEnvDurationOrDefault("DISPATCH_RETRY_DELAY", 30*time.Second),
		DispatchMaxRetryDelay: getEnvDurationOrDefault("DISPATCH_MAX_RETRY_DELAY", 30*time.Minute),
		OutboxRetention:       getEnvDurationOrDefault("OUTBOX_RETENTION", 7*24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
	}
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("SIGNUP_DATABASE_FILE is required for the sqlite driver"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("SIGNUP_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SIGNUP_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	if _, err := domain.ParseChannel(string(c.NotifyChannel)); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_CHANNEL: %w", err))
	}

	switch c.NotifyDriver {
	case "log":
		if c.Env == "prod" {
			errs = append(errs, errors.New("NOTIFY_DRIVER=log would never deliver passcodes in prod"))
		}
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for the twilio driver"))
		}
	case "amqp":
		if c.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the amqp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_DRIVER %q", c.NotifyDriver))
	}

	if c.PasscodeTTL < 0 {
		errs = append(errs, errors.New("SIGNUP_PASSCODE_TTL must not be negative"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("SIGNUP_TOKEN_TTL must be positive"))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive"))
	}
	if c.PasscodeMaxAttempts < 1 {
		errs = append(errs, errors.New("SIGNUP_PASSCODE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.DispatchMaxAttempts < 1 {
		errs = append(errs, errors.New("DISPATCH_MAX_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
