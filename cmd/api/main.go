// Package main is the entrypoint for the Inkwell API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/inkwell/inkwell/internal/bootstrap"
	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/catalog"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/gemini"
	"github.com/inkwell/inkwell/internal/handler"
	"github.com/inkwell/inkwell/internal/httpclient"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/middleware"
	"github.com/inkwell/inkwell/internal/razorpay"
	"github.com/inkwell/inkwell/internal/server"
	"github.com/inkwell/inkwell/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Persistence
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := bootstrap.OpenStore(connectCtx, cfg)
	if err != nil {
		logger.Error("failed to connect to store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("url", bootstrap.StoreURL(cfg)),
		)
		return err
	}
	logger.Info("connected to store", slog.String("driver", cfg.StoreDriver))

	// Cache, rate limits and generation locks
	cacheClient, err := cache.New(connectCtx, cfg.RedisURL)
	if err != nil {
		_ = store.Close(ctx)
		logger.Error("failed to connect to Redis",
			slog.String("error", bootstrap.SanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", bootstrap.RedactURL(cfg.RedisURL)),
		)
		return err
	}
	logger.Info("connected to Redis")

	templates, err := catalog.Load()
	if err != nil {
		_ = cacheClient.Close()
		_ = store.Close(ctx)
		return err
	}

	// Upstream gateways
	generator := gemini.New(gemini.Config{
		APIKey:          cfg.GeminiAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		Model:           cfg.GeminiModel,
		Temperature:     cfg.GeminiTemperature,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		MaxAttempts:     cfg.GeminiMaxAttempts,
	}, httpclient.New(cfg.GeminiTimeout))

	var gateway service.PaymentGateway
	if cfg.PaymentConfigured() {
		gateway = razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, httpclient.New(cfg.PaymentTimeout))
	} else {
		logger.Warn("payment gateway not configured; plan upgrades are disabled")
	}

	// Services
	recorder := metrics.NewInMemory()
	plans := cfg.Plans()

	accountService := service.NewAccountService(store, plans, cacheClient, service.AccountConfig{
		TokenTTL: cfg.TokenTTL,
		TokenEnv: cfg.TokenEnv,
	}, logger)
	generationService := service.NewGenerationService(
		store,
		generator,
		cacheClient.NewAccountLock(cfg.GenerationLockTTL, cfg.GenerationLockWait),
		recorder,
		logger,
	)
	generationService.SetTimeout(cfg.GenerationTimeout)
	billingService := service.NewBillingService(store, plans, gateway, cfg.PaymentCurrency, recorder, logger)

	// Handlers
	resp := handler.NewResponder(logger, cfg.IsDevelopment())
	router := server.NewRouter(server.Routes{
		Logger:      logger,
		Development: cfg.IsDevelopment(),
		CORSOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize: cfg.MaxRequestBodySize,
		Auth: middleware.AuthConfig{
			Logger:      logger,
			Tokens:      store,
			Accounts:    store,
			Cache:       cacheClient,
			Metrics:     recorder,
			MinDuration: cfg.AuthMinDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:      logger,
			Limiter:     cacheClient,
			APIEnabled:  cfg.RateLimitAPIEnabled,
			AuthEnabled: cfg.RateLimitAuthEnabled,
			AuthRPS:     cfg.RateLimitAuthRPS,
			AuthBurst:   cfg.RateLimitAuthBurst,
		},
		Root:      handler.New(),
		Health:    handler.NewHealthHandler(cfg.StoreDriver, store, cacheClient),
		Metrics:   handler.NewMetricsHandler(recorder),
		Content:   handler.NewContentHandler(generationService, templates, resp),
		Billing:   handler.NewBillingHandler(billingService, accountService, resp),
		Accounts:  handler.NewAccountHandler(accountService, resp),
		Templates: handler.NewTemplateHandler(templates),
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("store", store.Close)
	srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"model", generator.Model(),
		"payments_enabled", gateway != nil,
	)

	return srv.Run(ctx)
}
