package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kevin07696/order-payment-service/internal/adapters/database"
	"github.com/kevin07696/order-payment-service/internal/adapters/postgres"
	"github.com/kevin07696/order-payment-service/internal/adapters/secrets"
	"github.com/kevin07696/order-payment-service/internal/adapters/vnpay"
	"github.com/kevin07696/order-payment-service/internal/config"
	paymentHandler "github.com/kevin07696/order-payment-service/internal/handlers/payment"
	"github.com/kevin07696/order-payment-service/internal/middleware"
	cartService "github.com/kevin07696/order-payment-service/internal/services/cart"
	paymentService "github.com/kevin07696/order-payment-service/internal/services/payment"
	pkgmiddleware "github.com/kevin07696/order-payment-service/pkg/middleware"
	"github.com/kevin07696/order-payment-service/pkg/observability"
	"github.com/kevin07696/order-payment-service/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting order payment service",
		zap.String("environment", cfg.Server.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service exited with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownManager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	// Database
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.URL)
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.QueryTimeout = cfg.Database.QueryTimeout

	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	shutdownManager.RegisterNoErr("database", db.Close)
	db.StartPoolMonitoring(ctx, 30*time.Second)

	// Processor
	hashSecret, err := resolveHashSecret(ctx, cfg, logger)
	if err != nil {
		return err
	}
	gateway := vnpay.NewAdapter(vnpayConfig(cfg, hashSecret), logger)

	// Services
	orders := postgres.NewOrderRepository(db)
	carts := postgres.NewCartRepository(db)

	cartCache := cartService.NewCache(carts, logger, cfg.Cart.CacheTTL, cfg.Cart.CacheMaxSize)
	cartClearer := cartService.NewClearer(carts, cartCache, cartService.ClearerConfig{
		Timeout:     cfg.Cart.ClearTimeout,
		MaxFailures: cfg.Cart.BreakerFailures,
		OpenTimeout: cfg.Cart.BreakerOpenFor,
	}, logger)

	reconciler := paymentService.NewReconciler(orders, cartClearer, logger)
	payments := paymentService.NewService(orders, gateway, reconciler, logger, cfg.VNPay.CurrCode)

	// HTTP
	rateLimiter := pkgmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	shutdownManager.RegisterNoErr("rate limiter", rateLimiter.Shutdown)

	ipnAllowlist, err := middleware.NewIPNAllowlist(cfg.VNPay.IPNAllowedIPs, logger)
	if err != nil {
		return err
	}

	trustedProxies, err := middleware.NewTrustedProxies(cfg.Server.TrustedProxies, logger)
	if err != nil {
		return err
	}

	handler := paymentHandler.NewHandler(payments, cartCache, logger, cfg.Frontend.PaymentResultURL)
	httpServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler: paymentHandler.NewRouter(handler, paymentHandler.RouterConfig{
			Logger:         logger,
			IsDevelopment:  cfg.Server.Environment == "development",
			TrustedProxies: trustedProxies.Middleware,
			RateLimiter:    rateLimiter.Middleware,
			IPNAllowlist:   ipnAllowlist.Middleware,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC health and reflection for platform probes
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			pkgmiddleware.UnaryRecoveryInterceptor(logger),
			pkgmiddleware.UnaryLoggingInterceptor(logger),
			observability.UnaryServerInterceptor(),
		),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsServer := observability.NewMetricsServer(
		fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		observability.NewHealthChecker(db.GetDB(), cartClearer),
	)

	// Registered last so they stop first
	shutdownManager.RegisterHTTPServer("metrics server", metricsServer)
	shutdownManager.RegisterNoErr("grpc server", func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	})
	shutdownManager.RegisterHTTPServer("http server", httpServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("address", grpcListener.Addr().String()))
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Metrics server listening", zap.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		return shutdownManager.Shutdown(context.Background())
	})

	return g.Wait()
}

// resolveHashSecret prefers the secret manager when a secret path is configured
func resolveHashSecret(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.VNPay.SecretPath == "" {
		return cfg.VNPay.HashSecret, nil
	}

	awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
	awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
	awsCfg.CacheTTL = cfg.Secrets.CacheTTL

	vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress)
	vaultCfg.Token = cfg.Secrets.VaultToken
	vaultCfg.MountPath = cfg.Secrets.VaultMountPath
	vaultCfg.CacheTTL = cfg.Secrets.CacheTTL

	sm, err := secrets.New(ctx, secrets.Options{
		Backend:   cfg.Secrets.Backend,
		LocalPath: cfg.Secrets.LocalPath,
		AWS:       awsCfg,
		Vault:     vaultCfg,
	}, logger)
	if err != nil {
		return "", fmt.Errorf("initialize secret manager: %w", err)
	}

	secret, err := sm.GetSecret(ctx, cfg.VNPay.SecretPath)
	if err != nil {
		return "", fmt.Errorf("load VNPay hash secret: %w", err)
	}

	logger.Info("Loaded VNPay hash secret",
		zap.String("backend", cfg.Secrets.Backend),
		zap.String("path", cfg.VNPay.SecretPath),
		zap.String("version", secret.Version),
	)
	return secret.Value, nil
}

func vnpayConfig(cfg *config.Config, hashSecret string) *vnpay.Config {
	vc := vnpay.DefaultConfig(cfg.Server.Environment)
	vc.TmnCode = cfg.VNPay.TmnCode
	vc.HashSecret = hashSecret
	vc.ReturnURL = cfg.VNPay.ReturnURL
	vc.Locale = cfg.VNPay.Locale
	vc.CurrCode = cfg.VNPay.CurrCode
	vc.OrderType = cfg.VNPay.OrderType
	vc.ExpireAfter = cfg.VNPay.ExpireAfter
	if cfg.VNPay.PayURL != "" {
		vc.PayURL = cfg.VNPay.PayURL
	}
	return vc
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
