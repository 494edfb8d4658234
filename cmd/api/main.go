package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/noah-isme/promo-api/internal/common"
	"github.com/noah-isme/promo-api/internal/config"
	"github.com/noah-isme/promo-api/internal/coupon"
	"github.com/noah-isme/promo-api/internal/discount"
	"github.com/noah-isme/promo-api/internal/gift"
	"github.com/noah-isme/promo-api/internal/health"
	"github.com/noah-isme/promo-api/internal/identity"
	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/pricing"
	"github.com/noah-isme/promo-api/internal/redemption"
	"github.com/noah-isme/promo-api/internal/store"
	"github.com/noah-isme/promo-api/internal/tier"
	"github.com/noah-isme/promo-api/internal/variant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "promo")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "promo-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
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

	if cfg.RunMigrations {
		if err := runMigrations(cfg); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "promo-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := store.New(pool)

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

	verifier, err := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	identityMw := identity.Middleware{Verifier: verifier}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	couponSvc := &coupon.Service{Q: queries}
	couponHandler := &coupon.Handler{Q: queries, Svc: couponSvc}

	discountSvc := &discount.Service{Q: queries}
	discountHandler := &discount.Handler{Q: queries}

	tierSvc := &tier.Service{Q: queries}
	tierHandler := &tier.Handler{Q: queries, Svc: tierSvc}

	giftSvc := &gift.Service{Q: queries}
	giftHandler := &gift.Handler{Q: queries, Svc: giftSvc}

	variantSvc := &variant.Service{
		Q:     queries,
		Cache: variant.NewCache(redisClient, cfg.VariantPriceCacheTTL),
		Log:   logger,
	}
	variantHandler := &variant.Handler{Q: queries, Svc: variantSvc}

	aggregator := &pricing.Aggregator{Coupons: couponSvc, Discounts: discountSvc, Log: logger}
	pricingHandler := &pricing.Handler{Agg: aggregator, TaxRateBps: cfg.TaxRateBps, ShippingFee: cfg.ShippingFee}

	asynqOpts := asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB}
	taskClient := asynq.NewClient(asynqOpts)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	redemptionHandler := &redemption.Handler{Enqueuer: redemption.Enqueuer{Client: taskClient}}

	rateLimitMw, err := publicRateLimiter(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
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
		Probes: map[string]health.Pinger{
			"db":    pingDB(pool),
			"redis": pingRedis(redisClient),
		},
		Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(public chi.Router) {
			public.Use(rateLimitMw)
			public.Use(identityMw.Attach)
			public.Post("/pricing/quote", pricingHandler.Quote)
			public.Post("/pricing/summary", pricingHandler.Summary)
			public.Post("/coupons/validate", couponHandler.Validate)
			public.Post("/tiers/{id}/resolve", tierHandler.Resolve)
			public.Post("/gifts/{id}/evaluate", giftHandler.Evaluate)
			public.Get("/variants/{id}/price", variantHandler.GetPrice)
		})

		v.Group(func(settle chi.Router) {
			settle.Use(identityMw.Attach)
			settle.With(idem.Middleware).Post("/redemptions", redemptionHandler.Enqueue)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(identityMw.RequireRole("admin"))
			admin.Get("/coupons", couponHandler.List)
			admin.Post("/coupons", couponHandler.Create)
			admin.Put("/coupons/{code}", couponHandler.Update)
			admin.Delete("/coupons/{code}", couponHandler.Delete)

			admin.Get("/discounts", discountHandler.List)
			admin.Post("/discounts", discountHandler.Create)
			admin.Put("/discounts/{id}", discountHandler.Update)
			admin.Delete("/discounts/{id}", discountHandler.Delete)

			admin.Get("/tiers", tierHandler.List)
			admin.Post("/tiers", tierHandler.Create)
			admin.Put("/tiers/{id}", tierHandler.Update)
			admin.Delete("/tiers/{id}", tierHandler.Delete)

			admin.Get("/gifts", giftHandler.List)
			admin.Post("/gifts", giftHandler.Create)
			admin.Put("/gifts/{id}", giftHandler.Update)
			admin.Delete("/gifts/{id}", giftHandler.Delete)

			admin.Put("/variants/{id}/pricing", variantHandler.Upsert)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func publicRateLimiter(cfg *config.Config, redisClient *redis.Client) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimitPublic)
	if err != nil {
		return nil, err
	}
	limStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "promo:ratelimit"})
	if err != nil {
		return nil, err
	}
	mw := limiterstdlib.NewMiddleware(limiter.New(limStore, rate))
	return mw.Handler, nil
}

// runMigrations applies pending migrations using the pgx/v5 migrate driver.
func runMigrations(cfg *config.Config) error {
	url := cfg.DatabaseURL
	if strings.HasPrefix(url, "postgres://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgres://")
	} else if strings.HasPrefix(url, "postgresql://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgresql://")
	}
	m, err := migrate.New("file://"+cfg.MigrationsPath, url)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func pingDB(pool *pgxpool.Pool) health.Pinger {
	return func(ctx context.Context, timeout time.Duration) error {
		if pool == nil {
			return errors.New("db not configured")
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

func pingRedis(client *redis.Client) health.Pinger {
	return func(ctx context.Context, timeout time.Duration) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
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
