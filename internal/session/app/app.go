package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/geoip"
	httpapi "github.com/aussiebroadwan/sessiond/internal/session/http"
	"github.com/aussiebroadwan/sessiond/internal/session/metrics"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/internal/session/store"
	"github.com/aussiebroadwan/sessiond/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessiond/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiond/pkg/cryptox"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
	"github.com/aussiebroadwan/sessiond/pkg/tokenx"
	"github.com/aussiebroadwan/sessiond/pkg/totpx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application wires the session service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Sessions
	ids     *snowflake.Generator
	geo     *geoip.Resolver // nil when geolocation is off
	metrics *metrics.Metrics

	authority           *service.Authority
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	serviceKey string

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	return newApplication(cfg, slogx.New(slogx.Config{
		Service: "sessiond",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

func newApplication(cfg Config, logger *slog.Logger) (*Application, error) {
	app := &Application{cfg: cfg, logger: logger}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("session service starting",
		"port", app.cfg.Port,
		"worker_id", app.ids.WorkerID(),
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
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

// Shutdown drains in-flight requests, stops housekeeping and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("session service stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case StoreSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		version, err := db.ApplyMigrations()
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile, "schema_version", version)
	default:
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory session store; sessions are lost on restart")
	}
	return nil
}

func (app *Application) initServices() error {
	tokenSecret, err := cryptox.ResolveSecret(app.cfg.TokenSecret, app.cfg.TokenSecretFile, cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("token secret: %w", err)
	}
	if tokenSecret.Ephemeral() {
		app.logger.Warn("no token secret configured; generated one for this process, tokens will not survive a restart")
	}

	totpSecret, err := app.resolveTOTPSecret()
	if err != nil {
		return err
	}

	if app.cfg.WorkerID >= 0 {
		app.ids, err = snowflake.New(app.cfg.WorkerID)
	} else {
		app.ids, err = snowflake.NewFromHost()
	}
	if err != nil {
		return fmt.Errorf("id generator: %w", err)
	}

	app.metrics = metrics.New(app.cfg.MetricsEnabled)

	app.authority = &service.Authority{
		Store:   app.db,
		IDs:     app.ids,
		Tokens:  tokenx.NewCodec(tokenSecret.Bytes),
		Config:  app.cfg.Policy(),
		Metrics: app.metrics,
		Logger:  app.logger,
	}

	var purger service.CachePurger
	if app.cfg.GeoEnabled() {
		app.geo = geoip.NewResolver(
			geoip.NewClient(app.cfg.GeoServiceURL),
			geoip.WithTTL(app.cfg.GeoCacheTTL),
			geoip.WithTimeout(app.cfg.GeoLookupTimeout),
			geoip.WithLogger(app.logger),
			geoip.WithRecorder(app.metrics),
		)
		app.authority.Geo = app.geo
		purger = app.geo
	} else {
		app.logger.Info("geolocation disabled")
	}

	app.serviceKey, err = app.resolveServiceKey()
	if err != nil {
		return err
	}

	app.mfaService = &service.MFAService{
		Secret: totpSecret,
		Issuer: app.cfg.TOTPIssuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.authority,
		purger,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) resolveTOTPSecret() ([]byte, error) {
	secret, err := cryptox.ResolveSecret(app.cfg.TOTPSecret, app.cfg.TOTPSecretFile, totpx.SecretSize)
	if err != nil {
		return nil, fmt.Errorf("totp secret: %w", err)
	}
	if secret.Ephemeral() {
		app.logger.Warn("no TOTP secret configured; generated one for this process")
		return secret.Bytes, nil
	}

	raw, err := totpx.DecodeSecret(string(secret.Bytes))
	if err != nil {
		return nil, fmt.Errorf("totp secret from %s: %w", secret.Source, err)
	}
	return raw, nil
}

// resolveServiceKey returns "" when no key is configured. Unlike the signing
// secrets a missing key is never generated.
func (app *Application) resolveServiceKey() (string, error) {
	if strings.TrimSpace(app.cfg.ServiceKey) == "" && app.cfg.ServiceKeyFile == "" {
		app.logger.Warn("no service key configured; session creation is open and refuses roles and permissions")
		return "", nil
	}
	key, err := cryptox.ResolveSecret(app.cfg.ServiceKey, app.cfg.ServiceKeyFile, 0)
	if err != nil {
		return "", fmt.Errorf("service key: %w", err)
	}
	return string(key.Bytes), nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	router.Authority = app.authority
	router.MFA = app.mfaService
	router.IDs = app.ids
	router.Store = app.db
	router.Metrics = app.metrics
	router.Swagger = app.cfg.SwaggerEnabled
	router.ServiceKey = app.serviceKey
	router.TrustProxyHeaders = app.cfg.TrustProxyHeaders
	router.Limits = httpapi.Limits{
		Strict:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
		Moderate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		Public:   httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit),
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
