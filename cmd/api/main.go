package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_gateway/internal/cache"
	"github.com/GTDGit/gtd_gateway/internal/config"
	"github.com/GTDGit/gtd_gateway/internal/credential"
	"github.com/GTDGit/gtd_gateway/internal/database"
	"github.com/GTDGit/gtd_gateway/internal/handler"
	"github.com/GTDGit/gtd_gateway/internal/middleware"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/service"
)

// main is the application entrypoint for the gateway registry service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("db_driver", cfg.DB.Driver).Msg("starting gateway registry")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis (optional; the status projection falls back to the database)
	var (
		statusCache service.StatusCache
		redisPinger handler.Pinger
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis connection failed - status cache disabled")
		} else {
			defer redisClient.Close()
			statusCache = cache.NewStatusCache(redisClient, cfg.Redis.StatusCacheTTL)
			redisPinger = redisClient
			log.Info().Dur("ttl", cfg.Redis.StatusCacheTTL).Msg("redis connected successfully")
		}
	}

	// 4. Initialize repositories
	gatewayRepo := repository.NewGatewayRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	// 5. Initialize services
	codec := credential.NewCodec()
	tokenSvc := service.NewTokenService(db, gatewayRepo, tokenRepo, codec)
	gatewaySvc := service.NewGatewayService(db, gatewayRepo, orgRepo, tokenSvc, statusCache)
	statusSvc := service.NewStatusService(gatewayRepo, statusCache)
	verifySvc := service.NewVerificationService(gatewayRepo, tokenRepo, codec)

	// 6. Initialize handlers and middleware
	handlers := &handler.Handlers{
		Health:   handler.NewHealthHandler(db, redisPinger),
		Gateway:  handler.NewGatewayHandler(gatewaySvc, statusSvc),
		Token:    handler.NewTokenHandler(tokenSvc),
		Internal: handler.NewInternalHandler(gatewaySvc),
	}

	rateLimiter := middleware.NewInvalidAuthRateLimiter(5, time.Minute)
	defer rateLimiter.Close()
	middlewares := &handler.Middlewares{
		JWT:  middleware.NewJWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Auth: middleware.NewAuthMiddleware(verifySvc, cfg.Auth.InternalAPIKey, rateLimiter),
	}

	// 7. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	handler.SetupRoutes(router, handlers, middlewares)

	// 8. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 9. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// 10. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
