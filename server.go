package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dular-server/config"
	"dular-server/database"
	"dular-server/jobs"
	"dular-server/logger"
	"dular-server/middleware"
	"dular-server/routes"
	"dular-server/services"
	"dular-server/storage"
)

const shutdownTimeout = 10 * time.Second

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if err := database.Initialize(cfg.Database); err != nil {
		return nil, err
	}
	return database.GetDB(), nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func corsConfig(cfg config.ServerConfig) cors.Config {
	return cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// newRouter builds the engine with the global middleware stack and every route.
func newRouter(cfg *config.Config, appLog *logger.Logger, deps routes.Deps, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLog))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(cors.New(corsConfig(cfg.Server)))
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware(limiter, appLog))

	routes.RegisterRoutes(router, deps)
	return router
}

func runServer(ctx context.Context, cfg *config.Config, withWorker bool) error {
	appLog := logger.New(cfg.Server.Env)
	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Cloudinary)
	if err != nil {
		return err
	}

	throttler, err := middleware.NewThrottler(cfg.RateLimit, cfg.Redis)
	if err != nil {
		return err
	}
	if rt, ok := throttler.(*middleware.RedisThrottler); ok {
		defer rt.Close()
	}

	rating := services.NewRatingService(db, appLog)
	risk := services.NewRiskService(db, appLog)

	ctx, stop := signalContext(ctx)
	defer stop()

	var scheduler services.RecomputeScheduler
	if cfg.Redis.URL != "" {
		client, err := jobs.NewClient(cfg.Jobs, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		scheduler = client

		if withWorker {
			worker, err := jobs.NewWorker(cfg.Jobs, cfg.Redis, rating, risk, appLog)
			if err != nil {
				return err
			}
			go worker.Run(ctx)
		}
	} else {
		log.Println("⚠️ REDIS_URL is empty, failed recomputes wait for the reconcile job")
	}

	reconcile := jobs.NewReconcileJob(rating, risk, cfg.Jobs.ReconcileInterval)
	reconcile.Start()
	defer reconcile.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst)
	go sweepLimiters(ctx, limiter, throttler)

	router := newRouter(cfg, appLog, routes.Deps{
		DB:        db,
		Config:    cfg,
		Log:       appLog,
		Store:     store,
		Throttler: throttler,
		Scheduler: scheduler,
	}, limiter)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down server")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepLimiters drops idle per-IP limiters and expired in-memory windows.
func sweepLimiters(ctx context.Context, limiter *middleware.RateLimiter, throttler middleware.Throttler) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(10 * time.Minute)
			if mt, ok := throttler.(*middleware.MemoryThrottler); ok {
				mt.Cleanup()
			}
		}
	}
}
