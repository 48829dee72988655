package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/metrics"
	"github.com/aussiebroadwan/signup/internal/signup/service"
	"github.com/aussiebroadwan/signup/internal/signup/store"
	"github.com/aussiebroadwan/signup/pkg/httpx"
	"github.com/aussiebroadwan/signup/pkg/jwtx"
	"github.com/aussiebroadwan/signup/pkg/slogx"
	"github.com/redis/go-redis/v9"

	_ "github.com/aussiebroadwan/signup/api/signup" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limiters holds one limiter per rate limit profile.
type Limiters struct {
	Strict   httpx.Limiter
	Moderate httpx.Limiter
	Lenient  httpx.Limiter
	Public   httpx.Limiter
}

// MemoryLimiters keeps counters in process. Each replica limits on its own.
func MemoryLimiters() Limiters {
	return Limiters{
		Strict:   httpx.NewMemoryLimiter(httpx.StrictLimit),
		Moderate: httpx.NewMemoryLimiter(httpx.ModerateLimit),
		Lenient:  httpx.NewMemoryLimiter(httpx.LenientLimit),
		Public:   httpx.NewMemoryLimiter(httpx.PublicLimit),
	}
}

// RedisLimiters shares counters between replicas through redis.
func RedisLimiters(rdb redis.Scripter) Limiters {
	return Limiters{
		Strict:   httpx.NewRedisLimiter(rdb, "signup:rl:strict", httpx.StrictLimit),
		Moderate: httpx.NewRedisLimiter(rdb, "signup:rl:moderate", httpx.ModerateLimit),
		Lenient:  httpx.NewRedisLimiter(rdb, "signup:rl:lenient", httpx.LenientLimit),
		Public:   httpx.NewRedisLimiter(rdb, "signup:rl:public", httpx.PublicLimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       Limiters

	store               store.Store
	RegistrationService *service.RegistrationService
	VerificationService *service.VerificationService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	limits Limiters,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		limits:       limits,
	}

	// metrics sits directly on the mux so it sees the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.HTTPMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerRegistration()
	r.registerSystem()

	r.Mux.Handle("GET /metrics", metrics.Handler())
	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Signup Service API
//	@version		0.1.0
//	@description	User registration with a one-time passcode delivered over WhatsApp or SMS.
//	@description
//	@description				Registration returns a short lived EdDSA registration token used to verify the passcode.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/signup
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Registration token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h := r.handler
	if h == nil {
		h = httpx.Chain(r.Mux, r.middlewares...)
	}
	h.ServeHTTP(w, req)
}

func (r *Router) registerRegistration() {
	registerHandler := &RegisterHandler{RegistrationService: r.RegistrationService}
	verifyHandler := &VerifyHandler{VerificationService: r.VerificationService}
	resendHandler := &ResendHandler{VerificationService: r.VerificationService}
	tokenHandler := &TokenHandler{RegistrationService: r.RegistrationService}

	// POST /registrations - strict by IP (account creation, uniqueness probing)
	r.Mux.Handle("POST /v1/registrations",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /registrations/token - strict by IP, it checks a password
	r.Mux.Handle("POST /v1/registrations/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /registrations/verify - strict by user, four digit codes are easy to guess
	r.Mux.Handle("POST /v1/registrations/verify",
		httpx.Chain(verifyHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.limits.Strict),
		),
	)

	// POST /registrations/resend - moderate by user, each call costs a message
	r.Mux.Handle("POST /v1/registrations/resend",
		httpx.Chain(resendHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}
