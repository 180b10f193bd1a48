package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/soltanba/shoplane-backend/api/routes"
	authsvc "github.com/soltanba/shoplane-backend/internal/auth"
	cartsvc "github.com/soltanba/shoplane-backend/internal/cart"
	checkoutsvc "github.com/soltanba/shoplane-backend/internal/checkout"
	imagesvc "github.com/soltanba/shoplane-backend/internal/images"
	ordersvc "github.com/soltanba/shoplane-backend/internal/orders"
	paymentsvc "github.com/soltanba/shoplane-backend/internal/payments"
	productsvc "github.com/soltanba/shoplane-backend/internal/products"
	"github.com/soltanba/shoplane-backend/internal/users"
	stripewebhook "github.com/soltanba/shoplane-backend/internal/webhooks/stripe"
	"github.com/soltanba/shoplane-backend/pkg/config"
	"github.com/soltanba/shoplane-backend/pkg/db"
	"github.com/soltanba/shoplane-backend/pkg/logger"
	"github.com/soltanba/shoplane-backend/pkg/metrics"
	"github.com/soltanba/shoplane-backend/pkg/migrate"
	"github.com/soltanba/shoplane-backend/pkg/redis"
	pkgstripe "github.com/soltanba/shoplane-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	closeAll := func() {
		err := multierr.Combine(redisClient.Close(), dbClient.Close())
		if err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}
	defer closeAll()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	productRepo := productsvc.NewRepository(gormDB)
	imageRepo := imagesvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	orderRepo := ordersvc.NewRepository(gormDB)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	productService, err := productsvc.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	imageService, err := imagesvc.NewService(imageRepo, productRepo, cfg.Media)
	if err != nil {
		logg.Error(context.Background(), "failed to create image service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, productRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Tx:       dbClient,
		Carts:    cartRepo,
		Orders:   orderRepo,
		Products: productRepo,
		Logger:   logg,
		Metrics:  checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Orders:        orderRepo,
		OrderStatuses: orderService,
		Gateway:       paymentsvc.NewStripeClient(stripeClient),
		URLs: paymentsvc.SessionURLs{
			Success:  stripeClient.SuccessURL(),
			Cancel:   stripeClient.CancelURL(),
			Currency: stripeClient.Currency(),
		},
		Checkout: cfg.Checkout,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrderStatuses: orderService,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:          cfg,
		Logger:          logg,
		Metrics:         httpMetrics,
		DBPinger:        dbClient,
		RedisPinger:     redisClient,
		AuthService:     authService,
		UserService:     userService,
		ProductService:  productService,
		ImageService:    imageService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		OrderService:    orderService,
		PaymentService:  paymentService,
		StripeClient:    stripeClient,
		WebhookSvc:      webhookService,
		WebhookGuard:    webhookGuard,
		MetricsHandle:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
