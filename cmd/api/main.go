package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/go-phone-auth/docs" // Swagger docs
	"github.com/redmonkez12/go-phone-auth/internal/auth"
	"github.com/redmonkez12/go-phone-auth/internal/config"
	"github.com/redmonkez12/go-phone-auth/internal/database"
	httpServer "github.com/redmonkez12/go-phone-auth/internal/http"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/metrics"
	"github.com/redmonkez12/go-phone-auth/internal/notify"
	"github.com/redmonkez12/go-phone-auth/internal/otp"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/post"
	"github.com/redmonkez12/go-phone-auth/internal/ratelimit"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// @title           Go Phone Auth
// @version         1.0
// @description     Email and phone one-time code authentication with session-gated content.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment(), cfg.Server.LogLevel)
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Initialize database connection
	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, sqlDB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}
	db := database.NewBunDB(sqlDB)

	// Initialize Redis connection
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	policy := store.Policy{Timeout: cfg.Store.Timeout, MaxRetries: cfg.Store.MaxRetries}
	m := metrics.New()

	// Initialize repositories
	userRepo := user.NewRepository(db, policy)
	postRepo := post.NewRepository(db, policy)
	sessions := session.NewManager(session.NewRedisStore(redisClient, policy), cfg.Auth.SessionDuration, logger)

	// Initialize OTP delivery
	sender, closeSender, err := initSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OTP delivery: %w", err)
	}
	defer closeSender()

	codes := otp.NewService(otp.NewRedisLedger(redisClient, policy), sender, otp.Config{
		CodeLength:     cfg.OTP.CodeLength,
		TTL:            cfg.OTP.TTL,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendInterval: cfg.OTP.ResendInterval,
		HashCost:       cfg.OTP.HashCost,
	}, logger, m)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.IPRequests, cfg.RateLimit.IPWindow)

	// Initialize PASETO service
	pasetoService, err := auth.NewPasetoService(cfg.Auth.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize PASETO service: %w", err)
	}

	// Initialize auth service
	normalizer := phone.NewNormalizer(cfg.Auth.DefaultRegion)
	linker := auth.NewLinker(userRepo, cfg.Auth.PlaceholderDomain, logger, m)
	verifier := auth.NewVerifier(
		auth.NewPasswordStrategy(userRepo),
		auth.NewPhoneStrategy(normalizer, codes, linker),
	)
	authService := auth.NewService(userRepo, verifier, codes, sessions, normalizer, cfg.Auth.PlaceholderDomain, logger, m)

	// Initialize HTTP handlers
	isProduction := !cfg.Server.IsDevelopment()
	handlers := httpServer.Handlers{
		Auth:           auth.NewHandler(authService, pasetoService, rateLimiter, isProduction),
		AuthMiddleware: auth.NewMiddleware(auth.NewGate(sessions, userRepo), pasetoService),
		Posts:          post.NewHandler(postRepo),
		Users:          user.NewHandler(user.NewAdmin(userRepo, sessions, logger)),
		Metrics:        m,
	}

	// Initialize router
	router := httpServer.NewRouter(cfg, handlers, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initSender picks the OTP delivery channel. The returned func releases it.
func initSender(cfg *config.Config, logger *logging.Logger) (notify.Sender, func(), error) {
	if cfg.OTP.Delivery != "nats" {
		if !cfg.Server.IsDevelopment() {
			logger.Warn("OTP codes are only written to the log; set OTP_DELIVERY=nats for real delivery")
		}
		return notify.NewLogSender(logger), func() {}, nil
	}

	sender, err := notify.NewNATSSender(cfg.NATS.URL, cfg.NATS.OTPSubject, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing OTP codes to NATS", "subject", cfg.NATS.OTPSubject)
	return sender, sender.Close, nil
}
