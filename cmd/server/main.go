package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/application/address"
	cartapp "github.com/eatcost/storefront/internal/application/cart"
	catalogapp "github.com/eatcost/storefront/internal/application/catalog"
	financeapp "github.com/eatcost/storefront/internal/application/finance"
	identityapp "github.com/eatcost/storefront/internal/application/identity"
	orderapp "github.com/eatcost/storefront/internal/application/order"
	searchapp "github.com/eatcost/storefront/internal/application/search"
	"github.com/eatcost/storefront/internal/infrastructure/auth"
	"github.com/eatcost/storefront/internal/infrastructure/cache"
	"github.com/eatcost/storefront/internal/infrastructure/config"
	"github.com/eatcost/storefront/internal/infrastructure/logger"
	"github.com/eatcost/storefront/internal/infrastructure/payment"
	"github.com/eatcost/storefront/internal/infrastructure/scheduler"
	"github.com/eatcost/storefront/internal/infrastructure/subscription"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
	"github.com/eatcost/storefront/internal/interfaces/http/handler"
	"github.com/eatcost/storefront/internal/interfaces/http/middleware"
	"github.com/eatcost/storefront/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.EnsureLogDir(cfg.Log.Dir); err != nil {
		panic("Failed to create log directory: " + err.Error())
	}
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	pingCancel()
	log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))

	// Shared cache: compressed msgpack values, cross-instance
	// invalidation over pub/sub
	dataCache := cache.New(redisClient, logger.Named(log, "cache"),
		cache.WithCompression(),
		cache.WithInvalidationChannel(cfg.Cache.InvalidationCh),
	)
	dataCache.StartInvalidationListener(context.Background(), nil)
	defer dataCache.Close()

	autocompleteIndex := cache.NewAutocompleteIndex(redisClient)

	// Upstream store client
	store, err := woocommerce.NewClient(&woocommerce.Config{
		BaseURL:        cfg.WooCommerce.BaseURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
		AuthKey:        cfg.WooCommerce.AuthKey,
		RequestTimeout: cfg.WooCommerce.RequestTimeout,
	})
	if err != nil {
		log.Fatal("Failed to create store client", zap.Error(err))
	}

	// Payment gateway
	gateway, err := payment.NewTBankAdapter(&payment.TBankConfig{
		BaseURL:         cfg.TBank.BaseURL,
		TerminalKey:     cfg.TBank.TerminalKey,
		Password:        cfg.TBank.Password,
		NotificationURL: cfg.TBank.NotificationURL,
	})
	if err != nil {
		log.Fatal("Failed to create payment gateway", zap.Error(err))
	}

	// Billing service for recurring membership payments
	notifier, err := subscription.NewNotifier(&subscription.Config{
		BaseURL:        cfg.Subscription.BaseURL,
		RequestTimeout: cfg.Subscription.RequestTimeout,
	})
	if err != nil {
		log.Fatal("Failed to create subscription notifier", zap.Error(err))
	}

	tokenDecoder := auth.NewTokenDecoder(cfg.JWT.Secret)

	// Application services
	catalogService := catalogapp.NewService(store, dataCache, cfg.Cache.CatalogTTL, logger.Named(log, "catalog"))
	searchService := searchapp.NewService(store, dataCache, autocompleteIndex, cfg.Cache.SearchTTL, logger.Named(log, "search"))
	cartService := cartapp.NewService(store, dataCache, cfg.Cache.CartTTL, cfg.Cache.CartTokenTTL, logger.Named(log, "cart"))
	authService := identityapp.NewAuthService(store, gateway, tokenDecoder, logger.Named(log, "auth"))
	userService := identityapp.NewUserService(store, logger.Named(log, "users"))
	orderService := orderapp.NewService(store, logger.Named(log, "orders"))
	cardService := financeapp.NewCardService(gateway, logger.Named(log, "cards"))
	paymentService, err := financeapp.NewPaymentService(gateway, cartService, store, notifier,
		cfg.TBank.MembershipAmount, logger.Named(log, "payments"))
	if err != nil {
		log.Fatal("Failed to create payment service", zap.Error(err))
	}
	addressService := address.NewService(cfg.Address.FilePath, dataCache, cfg.Cache.AddressTTL, logger.Named(log, "addresses"))

	// HTTP handlers
	productHandler := handler.NewProductHandler(catalogService, searchService)
	cartHandler := handler.NewCartHandler(cartService, logger.Named(log, "cart"))
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	orderHandler := handler.NewOrderHandler(orderService)
	cardHandler := handler.NewCardHandler(cardService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	callbackHandler := handler.NewCallbackHandler(gateway, paymentService, logger.Named(log, "callbacks"))
	addressHandler := handler.NewAddressHandler(addressService)
	systemHandler := handler.NewSystemHandler(redisClient, version)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Tighter limit on credential endpoints
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		limit := middleware.RateLimit(authLimiter)
		engine.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/v1/auth/") {
				limit(c)
				return
			}
			c.Next()
		})
	}

	if cfg.Metrics.Enabled {
		httpMetrics := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
		engine.Use(httpMetrics.Handler())
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	engine.Use(middleware.JWTAuth(middleware.JWTConfig{
		Decoder: tokenDecoder,
		SkipPaths: []string{
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/auth/reset-password",
			"/api/v1/products",
			"/api/v1/products/category",
			"/api/v1/products/search",
			"/api/v1/products/search-autocomplete",
			"/api/v1/address/address-autocomplete",
			"/api/v1/address/address-check",
			"/api/v1/callbacks",
			"/api/v1/system/info",
			"/api/v1/system/ping",
			"/health",
			"/metrics",
		},
	}))

	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(
		productHandler,
		cartHandler,
		authHandler,
		userHandler,
		orderHandler,
		cardHandler,
		paymentHandler,
		callbackHandler,
		addressHandler,
		systemHandler,
	)
	r.Setup()

	// Background cache refresh jobs, lock-guarded so only one instance
	// runs each
	var refreshScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		refreshScheduler = scheduler.NewScheduler(redisClient, scheduler.Config{
			LockTTL:             cfg.Scheduler.LockTTL,
			LockedRetryInterval: cfg.Scheduler.LockedRetryInterval,
			JobTimeout:          cfg.Scheduler.JobTimeout,
		}, logger.Named(log, "scheduler"))

		refreshScheduler.Register(scheduler.Job{
			Name:     scheduler.JobRefreshCatalog,
			Interval: cfg.Scheduler.CatalogInterval,
			Run:      catalogService.RefreshCatalog,
		})
		refreshScheduler.Register(scheduler.Job{
			Name:     scheduler.JobRefreshCategories,
			Interval: cfg.Scheduler.CatalogInterval,
			Run:      catalogService.RefreshCategories,
		})
		refreshScheduler.Register(scheduler.Job{
			Name:     scheduler.JobRebuildIndex,
			Interval: cfg.Scheduler.AutocompleteInterval,
			Run: func(ctx context.Context) error {
				names, err := catalogService.RefreshProductNames(ctx)
				if err != nil {
					return err
				}
				_, err = searchService.RebuildIndex(ctx, names, cfg.Cache.AutocompleteTTL)
				return err
			},
		})

		if err := refreshScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start refresh scheduler", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if refreshScheduler != nil {
		if err := refreshScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping refresh scheduler", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
