package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"

	_ "github.com/aussiebroadwan/sessiond/api/sessiond" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// AdminRole may manage any user's sessions and run cleanup.
const AdminRole = "admin"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IDMinter hands out snowflake ids.
type IDMinter interface {
	Generate() (snowflake.ID, error)
	WorkerID() int64
}

// MetricsSink is what handlers record beyond the authority's own counters.
type MetricsSink interface {
	IDGenerated()
	Handler() http.Handler
}

// Limits are the rate limit profiles applied per endpoint group.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultLimits returns the stock profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Authority *service.Authority
	MFA       *service.MFAService
	IDs       IDMinter
	Store     Pinger
	Metrics   MetricsSink // optional
	Limits    Limits

	// Swagger mounts /swagger/ when true.
	Swagger bool

	// ServiceKey, when set, is required to create sessions. Without it
	// creation is open but refuses roles and permissions.
	ServiceKey string

	// TrustProxyHeaders resolves client addresses from forwarding headers.
	TrustProxyHeaders bool
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Limits:       DefaultLimits(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		httpx.ProxyHeaders(r.TrustProxyHeaders),
	}

	r.registerSessions()
	r.registerUsers()
	r.registerMFA()
	r.registerIDs()
	r.registerSystem()

	if r.Swagger {
		r.Mux.Handle("/swagger/", httpSwagger.Handler())
	}
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			sessiond Session Service API
//	@version		0.1.0
//	@description	Issues and validates HMAC-signed session tokens, tracks sessions per user and device, and mints snowflake ids.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sessiond
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
//	@description				Session access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(Authenticator{Authority: r.Authority})
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Authority: r.Authority}

	// Credential exchange: strict by IP. Creation is for trusted backends.
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(r.Limits.Strict),
			httpx.RequireServiceKey(r.ServiceKey),
		),
	)
	r.Mux.Handle("POST /v1/sessions/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	// Other services validate on every request they serve.
	r.Mux.Handle("POST /v1/sessions/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)

	r.Mux.Handle("POST /v1/sessions/cleanup",
		httpx.Chain(http.HandlerFunc(h.HandleCleanup),
			r.authn(),
			httpx.RequireAnyRole(AdminRole),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)

	r.Mux.Handle("GET /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn(),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			r.authn(),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Authority: r.Authority}

	// Callers manage their own sessions; admins manage anyone's.
	r.Mux.Handle("GET /v1/users/{userID}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RequireSelfOrRole("userID", AdminRole),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{userID}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			r.authn(),
			httpx.RequireSelfOrRole("userID", AdminRole),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFA}

	// Strict by IP to stop brute forcing six digit codes.
	r.Mux.Handle("POST /v1/mfa/totp/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyTOTP),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/mfa/backup-codes/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyBackupCode),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("GET /v1/mfa/totp/enrollment",
		httpx.Chain(http.HandlerFunc(h.HandleEnrollment),
			r.authn(),
			httpx.RequireAnyRole(AdminRole),
			httpx.RateLimitByUser(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /v1/mfa/backup-codes",
		httpx.Chain(http.HandlerFunc(h.HandleGenerateBackupCodes),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerIDs() {
	h := &IDsHandler{IDs: r.IDs, Metrics: r.Metrics}

	r.Mux.Handle("GET /v1/ids",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /v1/ids/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDecode),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes are polled constantly; no limit.
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.Store, r.Authority))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
