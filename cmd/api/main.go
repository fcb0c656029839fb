package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmbq-backend/config"
	"fmbq-backend/internal/delivery/http/middleware"
	v1 "fmbq-backend/internal/delivery/http/v1"
	"fmbq-backend/internal/domain"
	"fmbq-backend/internal/infrastructure/cache"
	"fmbq-backend/internal/infrastructure/push"
	"fmbq-backend/internal/infrastructure/realtime"
	"fmbq-backend/internal/repository/pgrepo"
	"fmbq-backend/internal/usecase"
	"fmbq-backend/pkg/logger"
	"fmbq-backend/pkg/storage"
	"fmbq-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)
	utils.SetQRSecret(cfg.QRSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	pgxPool, err := pgrepo.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgxPool.Close()
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Repositories
	userRepo := pgrepo.NewUserRepository(pgxPool)
	productRepo := pgrepo.NewProductRepository(pgxPool)
	orderRepo := pgrepo.NewOrderRepository(pgxPool)
	configRepo := pgrepo.NewConfigRepository(pgxPool)
	notifRepo := pgrepo.NewNotificationRepository(pgxPool)
	txManager := pgrepo.NewTransactionManager(pgxPool)

	// In-memory cache: default expiration 30m, cleanup every 60m
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)

	// Payment-proof storage (R2)
	r2Storage, err := storage.NewR2Storage(
		context.Background(),
		cfg.R2AccountID,
		cfg.R2AccessKeyID,
		cfg.R2AccessKeySecret,
		cfg.R2BucketName,
		cfg.R2PublicURL,
		cfg.R2UploadTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
	}

	// Realtime channel. Optional: without Redis we degrade to a no-op.
	var publisher domain.EventPublisher = realtime.NopPublisher{}
	if cfg.RedisURL != "" {
		redisPub, err := realtime.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisPub.Close()
		publisher = redisPub
	} else {
		log.Warn().Msg("REDIS_URL not set, realtime events disabled")
	}

	expoClient := push.NewExpoClient(cfg.ExpoPushURL, cfg.PushSendTimeout)

	// Usecases
	orderUC := usecase.NewOrderUsecase(orderRepo, productRepo, configRepo, notifRepo, txManager, publisher, cfg.EventChannel, memCache, cfg.CacheZoneTTL)
	paymentUC := usecase.NewPaymentUsecase(orderRepo, notifRepo, txManager, r2Storage, publisher, cfg.EventChannel)
	handoffUC := usecase.NewHandoffUsecase(orderRepo, notifRepo, txManager, publisher, cfg.EventChannel)
	notifUC := usecase.NewNotificationUsecase(notifRepo, userRepo, expoClient)

	// Handlers
	orderHandler := v1.NewOrderHandler(orderUC, paymentUC, notifUC, cfg.MaxUploadSizeMB)
	adminOrderHandler := v1.NewAdminOrderHandler(orderUC, paymentUC, notifUC)
	handoffHandler := v1.NewHandoffHandler(handoffUC)

	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}
	delivery := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.DeliveryMiddleware(h))
	}

	// Cart
	mux.Handle("GET /api/v1/cart", authed(orderHandler.GetCart))
	mux.Handle("POST /api/v1/cart", authed(orderHandler.AddToCart))
	mux.Handle("PUT /api/v1/cart", authed(orderHandler.UpdateCart))
	mux.Handle("DELETE /api/v1/cart/{productId}", authed(orderHandler.RemoveFromCart))

	// Checkout & Orders
	mux.Handle("POST /api/v1/checkout", authed(orderHandler.Checkout))
	mux.Handle("GET /api/v1/orders", authed(orderHandler.GetMyOrders))
	mux.Handle("GET /api/v1/orders/{id}", authed(orderHandler.GetMyOrder))
	mux.Handle("GET /api/v1/orders/{id}/tracking", authed(orderHandler.GetMyTracking))
	mux.Handle("POST /api/v1/orders/{id}/payment-proof", authed(orderHandler.UploadPaymentProof))
	mux.HandleFunc("GET /api/v1/shipping-zones", orderHandler.GetShippingZones)

	// Device tokens
	mux.Handle("POST /api/v1/devices", authed(orderHandler.RegisterDevice))
	mux.Handle("DELETE /api/v1/devices", authed(orderHandler.UnregisterDevice))

	// Admin order management
	mux.Handle("GET /api/v1/admin/orders", admin(adminOrderHandler.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/{id}", admin(adminOrderHandler.GetOrder))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", admin(adminOrderHandler.UpdateStatus))
	mux.Handle("POST /api/v1/admin/orders/{id}/verify-payment", admin(adminOrderHandler.VerifyPayment))
	mux.Handle("GET /api/v1/admin/orders/{id}/tracking", admin(adminOrderHandler.GetTracking))
	mux.Handle("GET /api/v1/admin/orders/{id}/history", admin(adminOrderHandler.GetStatusHistory))
	mux.Handle("GET /api/v1/admin/orders/{id}/qr", admin(handoffHandler.GetQR))

	// Admin notifications
	mux.Handle("POST /api/v1/admin/notifications", admin(adminOrderHandler.Broadcast))
	mux.Handle("GET /api/v1/admin/notifications", admin(adminOrderHandler.ListNotifications))

	// Delivery app
	mux.Handle("POST /api/v1/delivery/scan", delivery(handoffHandler.Scan))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler)

	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		50,
		100,
		time.Minute,
		3*time.Minute,
	)

	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart("fmbq-api", "1.0.0", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.ServiceStop("fmbq-api")
}
