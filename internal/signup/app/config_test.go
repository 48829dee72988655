package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env

	cfg := LoadConfig()
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "log", cfg.NotifyDriver)
	require.Equal(t, domain.ChannelWhatsApp, cfg.NotifyChannel)
	require.Equal(t, 30*time.Minute, cfg.TokenTTL)
	require.Zero(t, cfg.PasscodeTTL)
	require.Equal(t, 5, cfg.PasscodeMaxAttempts)
	require.Equal(t, "signup.notifications", cfg.AMQPExchange)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SIGNUP_PASSCODE_TTL", "15m")
	t.Setenv("DISPATCH_RETRY_DELAY", "2") // bare minutes
	t.Setenv("NOTIFY_CHANNEL", "sms")
	t.Setenv("DISPATCH_BATCH_SIZE", "not-a-number")
	t.Setenv("SIGNUP_PASSCODE_MAX_ATTEMPTS", "3")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.PasscodeTTL)
	require.Equal(t, 2*time.Minute, cfg.DispatchRetryDelay)
	require.Equal(t, domain.ChannelSMS, cfg.NotifyChannel)
	require.Equal(t, 20, cfg.DispatchBatchSize)
	require.Equal(t, 3, cfg.PasscodeMaxAttempts)
}

func TestConfig_Validate(t *testing.T) {
	t.Chdir(t.TempDir())
	base := LoadConfig()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"twilio without credentials", func(c *Config) { c.NotifyDriver = "twilio" }, "TWILIO_ACCOUNT_SID"},
		{"amqp without url", func(c *Config) { c.NotifyDriver = "amqp" }, "AMQP_URL"},
		{"unknown notifier", func(c *Config) { c.NotifyDriver = "pigeon" }, "NOTIFY_DRIVER"},
		{"postgres without url", func(c *Config) { c.DatabaseDriver = "postgres" }, "SIGNUP_DATABASE_URL"},
		{"unknown database", func(c *Config) { c.DatabaseDriver = "mysql" }, "SIGNUP_DATABASE_DRIVER"},
		{"bad channel", func(c *Config) { c.NotifyChannel = "fax" }, "NOTIFY_CHANNEL"},
		{"log notifier in prod", func(c *Config) { c.Env = "prod" }, "NOTIFY_DRIVER=log"},
		{"no passcode attempts", func(c *Config) { c.PasscodeMaxAttempts = 0 }, "SIGNUP_PASSCODE_MAX_ATTEMPTS"},
		{"negative passcode ttl", func(c *Config) { c.PasscodeTTL = -time.Minute }, "SIGNUP_PASSCODE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("twilio with credentials", func(t *testing.T) {
		cfg := base
		cfg.NotifyDriver = "twilio"
		cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber = "AC1", "tok", "+14155238886"
		require.NoError(t, cfg.Validate())
	})
}

func TestSqliteDSN(t *testing.T) {
	require.Equal(t,
		"file:/data/signup.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29&_pragma=foreign_keys%281%29",
		sqliteDSN("/data/signup.db"),
	)
}
