package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/CortekUK/drive-247-sub013/internal/booking"
	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/config"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/events"
	"github.com/CortekUK/drive-247-sub013/internal/extras"
	"github.com/CortekUK/drive-247-sub013/internal/health"
	"github.com/CortekUK/drive-247-sub013/internal/holiday"
	"github.com/CortekUK/drive-247-sub013/internal/ledger"
	"github.com/CortekUK/drive-247-sub013/internal/lock"
	"github.com/CortekUK/drive-247-sub013/internal/obs"
	"github.com/CortekUK/drive-247-sub013/internal/quote"
	"github.com/CortekUK/drive-247-sub013/internal/ratelimit"
	"github.com/CortekUK/drive-247-sub013/internal/resilience"
	"github.com/CortekUK/drive-247-sub013/internal/security"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
	"github.com/CortekUK/drive-247-sub013/internal/vehicle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "drive247-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "drive247-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := db.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	bus := &events.Bus{Store: queries}
	if endpoint := envOrDefault("EVENTS_WEBHOOK_URL", ""); endpoint != "" {
		bus.Notifiers = append(bus.Notifiers, &events.WebhookNotifier{
			Endpoint: endpoint,
			HTTP: &resilience.HTTPClient{
				Client:      &http.Client{Timeout: 10 * time.Second},
				Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second),
				BaseBackoff: 200 * time.Millisecond,
				MaxAttempts: 3,
				Jitter:      0.2,
			},
			Logger: logger,
		})
		logger.Info().Strs("topics", events.DefaultTopics()).Str("endpoint", endpoint).Msg("webhook notifier enabled")
	}

	quoteSvc := &quote.Service{
		Q:      queries,
		Cache:  quote.NewCache(redisClient, cfg.PricingCacheTTL),
		Logger: logger,
	}
	quoteHandler := &quote.Handler{Svc: quoteSvc, Validate: validate}

	bookingSvc := &booking.Service{
		Pool:    pool,
		Q:       queries,
		Quotes:  quoteSvc,
		Locker:  lock.Locker{R: redisClient},
		Bus:     bus,
		Logger:  logger,
		LockTTL: cfg.BookingLockTTL,
	}
	bookingHandler := &booking.Handler{Svc: bookingSvc, Validate: validate}

	ledgerSvc := &ledger.Service{Pool: pool, Q: queries, Bus: bus, Logger: logger}
	ledgerHandler := &ledger.Handler{Svc: ledgerSvc, Validate: validate}

	fleetSvc := &vehicle.Service{Q: queries}
	fleetHandler := &vehicle.Handler{Svc: fleetSvc, Validate: validate}

	holidaySvc := &holiday.Service{Q: queries, Cache: quoteSvc.Cache, Logger: logger}
	holidayHandler := &holiday.Handler{Svc: holidaySvc, Validate: validate}

	extrasSvc := &extras.Service{Q: queries}
	extrasHandler := &extras.Handler{Svc: extrasSvc, Validate: validate}

	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	rateLimiter, err := ratelimit.NewRedisLimiter(redisClient, time.Minute, cfg.RateLimitPerMinute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	limited := ratelimit.Handler{
		Limiter: rateLimiter,
		Key: func(r *http.Request) string {
			slug, _ := tenant.From(r.Context())
			return tenant.PrefixKey(slug, common.ClientIP(r))
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)
	}

	resolver := tenant.NewResolver(cfg.TenantHeader, cfg.RootDomain, cfg.DefaultTenant)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(resolver.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", cfg.TenantHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limited.Middleware)

		v.Post("/quotes", quoteHandler.Quote)

		v.Route("/rentals", func(b chi.Router) {
			b.With(idem.Middleware).Post("/", bookingHandler.Confirm)
			b.Post("/{rentalID}/cancel", bookingHandler.Cancel)
			b.Post("/{rentalID}/close", bookingHandler.Close)
			b.Get("/{rentalID}/statement", ledgerHandler.Statement)
		})

		v.Route("/vehicles", func(f chi.Router) {
			f.Get("/", fleetHandler.List)
			f.Post("/", fleetHandler.Create)
			f.Get("/calendar", fleetHandler.Calendar)
			f.Route("/{vehicleID}", func(child chi.Router) {
				child.Get("/", fleetHandler.Get)
				child.Put("/rates", fleetHandler.UpdateRates)
				child.Get("/extra-prices", fleetHandler.ListOverrides)
				child.Put("/extra-prices", fleetHandler.SetOverride)
				child.Delete("/extra-prices/{extraID}", fleetHandler.ClearOverride)
			})
		})

		v.Route("/extras", func(e chi.Router) {
			e.Get("/", extrasHandler.Catalogue)
			e.Post("/", extrasHandler.Create)
		})

		v.Route("/holidays", func(hd chi.Router) {
			hd.Get("/", holidayHandler.List)
			hd.Post("/", holidayHandler.Create)
			hd.Delete("/{holidayID}", holidayHandler.Delete)
		})
		v.Put("/pricing/weekend", holidayHandler.UpdateWeekend)

		v.Route("/payments", func(p chi.Router) {
			p.With(idem.Middleware).Post("/", ledgerHandler.RecordPayment)
			p.With(idem.Middleware).Post("/allocations", ledgerHandler.Allocate)
		})
		v.Post("/charges/{chargeID}/write-off", ledgerHandler.WriteOff)
		v.Get("/customers/{customerID}/balance", ledgerHandler.Balance)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	health.SetReady(true)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		health.SetReady(false)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
