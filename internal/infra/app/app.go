package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/config"
	"github.com/ryanle444/HealthCoach/internal/infra/database"
	kafkainfra "github.com/ryanle444/HealthCoach/internal/infra/kafka"
	"github.com/ryanle444/HealthCoach/internal/infra/logger"
	"github.com/ryanle444/HealthCoach/internal/infra/mail"
	redisinfra "github.com/ryanle444/HealthCoach/internal/infra/redis"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	postgresrepo "github.com/ryanle444/HealthCoach/internal/repository/postgres"
	redisrepo "github.com/ryanle444/HealthCoach/internal/repository/redis"
	"github.com/ryanle444/HealthCoach/internal/session"
	"github.com/ryanle444/HealthCoach/internal/transport/http/middleware"
	"github.com/ryanle444/HealthCoach/internal/transport/http/routes"
	"github.com/ryanle444/HealthCoach/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	pbkdf2Cfg := security.PBKDF2Config{
		Algorithm:  cfg.PBKDF2.Algorithm,
		Iterations: cfg.PBKDF2.Iterations,
		SaltLength: cfg.PBKDF2.SaltLength,
		HashLength: cfg.PBKDF2.HashLength,
	}
	if err := security.ConfigurePBKDF2(pbkdf2Cfg); err != nil {
		return nil, fmt.Errorf("configure pbkdf2: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var (
		eventPublisher port.EventPublisher
		kafkaProducer  *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	users := postgresrepo.NewUserRepository(pool)

	var codeSender port.OneTimeCodeSender
	if cfg.App.Env == "development" {
		codeSender = mail.NewLogSender(cfg.TwoFactor.CodeLength, log)
	} else {
		codeSender = mail.NewCodeSender(eventPublisher, cfg.TwoFactor.CodeLength, cfg.TwoFactor.ChallengeTTL, log)
	}

	challenges := usecase.NewChallengeManager(codeSender, log)

	loginService := usecase.NewLoginService(users, challenges, eventPublisher, log,
		usecase.WithChallengeTTL(cfg.TwoFactor.ChallengeTTL),
		usecase.WithMaxCodeAttempts(cfg.TwoFactor.MaxAttempts),
	)
	registrationService := usecase.NewRegistrationService(users, security.DefaultPasswordPolicy(), eventPublisher, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "healthcoach:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	sessionManager, err := middleware.NewSessionManager(session.NewRegistry(), cfg.Session, log)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init session manager: %w", err)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.MetricsNamespace,
	})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Sessions:    sessionManager,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Login:        loginService,
			Registration: registrationService,
			Users:        users,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting HealthCoach API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
