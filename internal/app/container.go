package app

import (
	"context"
	"fmt"
	"time"

	"montoit/internal/analytics"
	"montoit/internal/caching"
	"montoit/internal/config"
	"montoit/internal/handlers"
	"montoit/internal/jobs"
	"montoit/internal/repositories"
	"montoit/internal/services"
	"montoit/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repositories groups the Postgres repositories
type Repositories struct {
	Users         repositories.UserRepository
	Properties    repositories.PropertyRepository
	Applications  repositories.ApplicationRepository
	Leases        repositories.LeaseRepository
	Payments      repositories.PaymentRepository
	Verifications repositories.VerificationRepository
	Mandates      repositories.MandateRepository
	Notifications repositories.NotificationRepository
	RateLimits    repositories.RateLimitRepository
	AuditLogs     repositories.AuditLogsRepository
}

func NewRepositories(db repositories.DBTX) *Repositories {
	return &Repositories{
		Users:         repositories.NewUserRepo(db),
		Properties:    repositories.NewPropertyRepo(db),
		Applications:  repositories.NewApplicationRepo(db),
		Leases:        repositories.NewLeaseRepo(db),
		Payments:      repositories.NewPaymentRepo(db),
		Verifications: repositories.NewVerificationRepo(db),
		Mandates:      repositories.NewMandateRepo(db),
		Notifications: repositories.NewNotificationRepo(db),
		RateLimits:    repositories.NewRateLimitRepo(db),
		AuditLogs:     repositories.NewAuditLogsRepo(db),
	}
}

// Services groups the domain services
type Services struct {
	RateLimit     services.RateLimitService
	Notifications services.NotificationService
	Auth          services.AuthService
	MFA           services.MFAService
	Mandates      services.MandateService
	AI            services.AIService
	Properties    services.PropertyService
	Scoring       services.ScoringService
	Payments      services.PaymentService
	Leases        services.LeaseService
	Applications  services.ApplicationService
	Verifications services.VerificationService
	AuditLogs     services.AuditLogsService
	Dashboards    *analytics.DashboardService
}

// NewServices wires every service; storage may be nil only in tests
func NewServices(cfg *config.Config, repos *Repositories, cache caching.CacheService, storage services.MinioService, logger *zap.Logger) *Services {
	s := &Services{}

	s.RateLimit = services.NewRateLimitService(repos.RateLimits, logger.Named("ratelimit"))

	messaging := services.NewMessagingClient(
		cfg.Notifications.EmailAPIURL, cfg.Notifications.EmailAPIKey, cfg.Notifications.EmailFrom,
		cfg.Notifications.SMSAPIURL, cfg.Notifications.SMSAPIKey, cfg.Notifications.SMSSender,
		logger.Named("messaging"))
	s.Notifications = services.NewNotificationService(repos.Notifications, repos.Users, messaging, messaging, logger.Named("notifications"))

	s.Auth = services.NewAuthService(repos.Users, cache, s.RateLimit, logger.Named("auth"),
		cfg.Auth.JWTSecret, cfg.Auth.AccessTTLSeconds, cfg.Auth.RefreshTTLSeconds)

	backend := services.NewBackendAuthClient(cfg.Backend.URL, cfg.Backend.AnonKey, logger.Named("backend"))
	s.MFA = services.NewMFAService(repos.Users, backend, cfg.Auth.MFAGraceDays, logger.Named("mfa"))

	s.Mandates = services.NewMandateService(repos.Mandates, repos.Properties, s.Notifications, logger.Named("mandates"))

	s.AI = services.NewAIService(cfg.AI.APIURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.ImageModel, cfg.AITimeout(),
		storage, s.RateLimit, logger.Named("ai"))

	s.Properties = services.NewPropertyService(repos.Properties, cache, storage, s.AI, s.Mandates, logger.Named("properties"))

	s.Scoring = services.NewScoringService(repos.Users, repos.Payments, repos.Verifications)

	provider := services.NewMobileMoneyClient(cfg.Payments.ProviderURL, cfg.Payments.ProviderKey, logger.Named("mobile_money"))
	s.Payments = services.NewPaymentService(repos.Payments, repos.Leases, provider, s.Mandates, s.RateLimit,
		s.Notifications, cfg.Payments.WebhookSecret, logger.Named("payments"))

	s.Leases = services.NewLeaseService(repos.Leases, repos.Applications, repos.Properties, repos.Users,
		s.Payments, cache, storage, s.Mandates, s.Notifications, logger.Named("leases"))

	s.Applications = services.NewApplicationService(repos.Applications, repos.Properties, s.Scoring, s.Leases,
		s.Mandates, s.RateLimit, s.Notifications, logger.Named("applications"))

	s.Verifications = services.NewVerificationService(repos.Verifications, repos.Users,
		services.NewSimulatedAuthorityClient(logger.Named("authority")), storage, s.RateLimit, s.Notifications,
		logger.Named("verifications"))

	s.AuditLogs = services.NewAuditLogsService(repos.AuditLogs)

	s.Dashboards = analytics.NewDashboardService(repos.Users, repos.Properties, repos.Applications, repos.Leases,
		repos.Payments, repos.Verifications, repos.Mandates, s.Scoring, s.MFA, cache, logger.Named("dashboard"))

	return s
}

// MaintenanceTasks builds the periodic jobs on top of the services
func (s *Services) MaintenanceTasks(repos *Repositories, logger *zap.Logger) *jobs.MaintenanceTasks {
	return jobs.NewMaintenanceTasks(s.Leases, s.Payments, s.Mandates, s.MFA, s.Notifications, repos.RateLimits, logger.Named("jobs"))
}

// Container owns the infrastructure handles of a running process
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *pgxpool.Pool
	Cache    caching.CacheService
	Storage  services.MinioService
	Repos    *Repositories
	Services *Services
	// Jobs is set once the scheduler is running; readiness reports it
	Jobs handlers.JobStatusReporter
}

// NewContainer connects Postgres, Redis and MinIO and wires the services
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
	if err != nil {
		return nil, err
	}

	cache := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)

	storage, err := services.NewMinioService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey,
		cfg.Storage.Region, cfg.Storage.UseSSL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize MinIO service: %w", err)
	}

	repos := NewRepositories(pool)
	return &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       pool,
		Cache:    cache,
		Storage:  storage,
		Repos:    repos,
		Services: NewServices(cfg, repos, cache, storage, logger),
	}, nil
}

// EnsureBuckets creates the storage buckets; failures are logged so the API can still start
func (c *Container) EnsureBuckets(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	for _, bucket := range services.AllBuckets {
		if err := c.Storage.EnsureBucket(ctx, bucket); err != nil {
			c.Logger.Warn("Failed to ensure bucket", zap.String("bucket", bucket), zap.Error(err))
		}
	}
}

func (c *Container) Close() {
	database.ClosePool(c.DB, c.Logger)
}
