package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/signup/internal/signup/http"
	"github.com/aussiebroadwan/signup/internal/signup/notify"
	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/internal/signup/store"
	"github.com/aussiebroadwan/signup/internal/signup/store/drivers/postgres"
	"github.com/aussiebroadwan/signup/internal/signup/store/drivers/sqlite"
	"github.com/aussiebroadwan/signup/pkg/cryptox"
	"github.com/aussiebroadwan/signup/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time with -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application wires the signup service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	keys     signingKeys
	hasher   *cryptox.PasswordHasher
	notifier notify.Notifier
	redis    *redis.Client

	registrationService *service.RegistrationService
	verificationService *service.VerificationService
	dispatcher          *service.Dispatcher

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "signup",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := initSigningKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	if err := app.initNotifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.dispatcher.Start()

	app.logger.Info("signup service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"notify_driver", app.notifier.Name(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.dispatcher.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP traffic, then stops the dispatcher and closes
// the backends.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down signup service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.dispatcher.Stop()

	if c, ok := app.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing notifier", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("signup service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqliteDSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

func (app *Application) initNotifier() error {
	switch app.cfg.NotifyDriver {
	case "twilio":
		n, err := notify.NewTwilioNotifier(notify.TwilioConfig{
			AccountSID: app.cfg.TwilioAccountSID,
			AuthToken:  app.cfg.TwilioAuthToken,
			From:       app.cfg.TwilioFromNumber,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize twilio notifier: %w", err)
		}
		app.notifier = n
	case "amqp":
		n, err := notify.NewAMQPNotifier(notify.AMQPConfig{
			URL:            app.cfg.AMQPURL,
			Exchange:       app.cfg.AMQPExchange,
			AppID:          "signup",
			ConfirmTimeout: app.cfg.NotifyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize amqp notifier: %w", err)
		}
		app.notifier = n
	default:
		app.logger.Warn("passcodes are written to the log and not delivered", "notify_driver", "log")
		app.notifier = notify.NewLogNotifier(app.logger)
	}
	return nil
}

func (app *Application) initServices() {
	app.dispatcher = service.NewDispatcher(app.db, app.notifier, app.logger, service.DispatcherConfig{
		Interval:      app.cfg.DispatchInterval,
		BatchSize:     app.cfg.DispatchBatchSize,
		MaxAttempts:   app.cfg.DispatchMaxAttempts,
		RetryDelay:    app.cfg.DispatchRetryDelay,
		MaxRetryDelay: app.cfg.DispatchMaxRetryDelay,
		SendTimeout:   app.cfg.NotifyTimeout,
		Retention:     app.cfg.OutboxRetention,
	})

	app.registrationService = &service.RegistrationService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: &service.TokenIssuer{
			Signer: app.keys.Signer,
			Issuer: app.cfg.Issuer,
			TTL:    app.cfg.TokenTTL,
		},
		Dispatcher:  app.dispatcher,
		Channel:     app.cfg.NotifyChannel,
		PasscodeTTL: app.cfg.PasscodeTTL,
	}

	app.verificationService = &service.VerificationService{
		Store:       app.db,
		Dispatcher:  app.dispatcher,
		Channel:     app.cfg.NotifyChannel,
		MaxAttempts: app.cfg.PasscodeMaxAttempts,
	}
}

func (app *Application) initHTTP() {
	limits := httpapi.MemoryLimiters()
	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		limits = httpapi.RedisLimiters(app.redis)
		app.logger.Info("rate limits shared through redis", "addr", app.cfg.RedisAddr)
	}

	router := httpapi.NewRouter(
		app.keys.KeySet,
		app.keys.Verifier,
		BuildVersion,
		app.db,
		app.logger,
		limits,
	)
	router.RegistrationService = app.registrationService
	router.VerificationService = app.verificationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
