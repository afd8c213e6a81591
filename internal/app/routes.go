package app

import (
	"time"

	"montoit/docs"
	"montoit/internal/common"
	"montoit/internal/handlers"
	"montoit/internal/middleware"
	"montoit/internal/services"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

// Version is the build reported by /health/ready and the version header
var Version = "1.0.0"

// NewEcho creates the HTTP server with the global middleware stack
func NewEcho(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(logger)

	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handlers.BackendTokenHeader},
		ExposeHeaders: []string{"X-MFA-Days-Remaining", "X-RateLimit-Remaining", "Retry-After", "X-API-Version"},
	}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.BodyLimit("12M"))

	return e
}

// RegisterRoutes mounts the health, docs and /v1 API routes
func RegisterRoutes(e *echo.Echo, c *Container, authMW *middleware.AuthMiddleware) {
	svc := c.Services
	logger := c.Logger

	rbac := middleware.NewRBACMiddleware(svc.MFA, logger.Named("rbac"))
	audit := middleware.NewAuditMiddleware(svc.AuditLogs, logger.Named("audit"))
	versions := middleware.NewVersionMiddleware(Version)

	authHandlers := handlers.NewAuthHandlers(svc.Auth, svc.MFA)
	mfaHandlers := handlers.NewMFAHandlers(svc.MFA)
	propertyHandlers := handlers.NewPropertyHandlers(svc.Properties, audit)
	applicationHandlers := handlers.NewApplicationHandlers(svc.Applications)
	leaseHandlers := handlers.NewLeaseHandlers(svc.Leases, svc.Payments, audit)
	verificationHandlers := handlers.NewVerificationHandlers(svc.Verifications, audit)
	paymentHandlers := handlers.NewPaymentHandlers(svc.Payments)
	mandateHandlers := handlers.NewMandateHandlers(svc.Mandates)
	notificationHandlers := handlers.NewNotificationHandlers(svc.Notifications)
	aiHandlers := handlers.NewAIHandlers(svc.AI)
	dashboardHandlers := handlers.NewDashboardHandlers(svc.Dashboards)
	auditLogsHandlers := handlers.NewAuditLogsHandlers(svc.AuditLogs)

	var db handlers.Pinger
	if c.DB != nil {
		db = c.DB
	}
	healthHandlers := handlers.NewHealthHandlers(db, c.Cache, c.Storage, c.Jobs, Version)

	e.Use(versions.APIVersionResolver())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	docs.SwaggerInfo.Version = Version
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	v1.Use(versions.VersionHeader("v1"))

	// Public routes
	authThrottle := middleware.IPThrottle(c.Cache, "auth", 30, time.Minute, logger)
	auth := v1.Group("/auth", authThrottle)
	auth.POST("/signup", authHandlers.Signup, middleware.RateLimit(svc.RateLimit, services.ActionSignup))
	auth.POST("/login", authHandlers.Login, middleware.RateLimit(svc.RateLimit, services.ActionLogin))
	auth.POST("/refresh", authHandlers.Refresh)

	v1.GET("/properties", propertyHandlers.Search)
	v1.GET("/properties/:id", propertyHandlers.Get, authMW.OptionalAuth())

	webhookThrottle := middleware.IPThrottle(c.Cache, "webhook", 120, time.Minute, logger)
	v1.POST("/webhooks/mobile-money", paymentHandlers.MobileMoneyWebhook, webhookThrottle, audit.AuditRequest(middleware.AuditHigh))

	// Authenticated routes
	protected := v1.Group("", authMW.RequireAuth(), audit.AuditRequest(middleware.AuditMedium))

	protected.POST("/auth/logout", authHandlers.Logout)
	protected.GET("/me", authHandlers.Me)
	protected.GET("/dashboard", dashboardHandlers.Get)

	mfa := protected.Group("/mfa")
	mfa.GET("/status", mfaHandlers.Status)
	mfa.POST("/enroll", mfaHandlers.Enroll)
	mfa.POST("/challenge", mfaHandlers.Challenge)
	mfa.POST("/verify", mfaHandlers.Verify)
	mfa.DELETE("/factors/:factor_id", mfaHandlers.Unenroll)

	// Listing management; agencies act through mandates checked by the services
	managers := protected.Group("", rbac.RequireRole(common.RoleOwner, common.RoleAgency, common.RoleAdmin), rbac.RequireMFACompliance())
	managers.POST("/properties", propertyHandlers.Create)
	managers.PUT("/properties/:id", propertyHandlers.Update)
	managers.POST("/properties/:id/publish", propertyHandlers.Publish)
	managers.DELETE("/properties/:id", propertyHandlers.Archive)
	managers.POST("/properties/:id/images", propertyHandlers.UploadImage)
	managers.GET("/owner/properties", propertyHandlers.ListMine)
	managers.GET("/properties/:id/applications", applicationHandlers.ListForProperty)
	managers.POST("/applications/:id/approve", applicationHandlers.Approve)
	managers.POST("/applications/:id/reject", applicationHandlers.Reject)
	managers.GET("/applications/:id/score", applicationHandlers.Score)
	managers.POST("/leases", leaseHandlers.Create)
	managers.POST("/leases/:id/send", leaseHandlers.SendForSignature)
	managers.POST("/leases/:id/certification", leaseHandlers.RequestCertification)

	tenants := protected.Group("", rbac.RequireRole(common.RoleTenant))
	tenants.POST("/properties/:id/applications", applicationHandlers.Submit, middleware.RateLimit(svc.RateLimit, services.ActionApplicationSubmit))
	tenants.GET("/applications/mine", applicationHandlers.ListMine)
	tenants.POST("/applications/:id/withdraw", applicationHandlers.Withdraw)
	tenants.POST("/payments/:id/pay", paymentHandlers.Pay, middleware.RateLimit(svc.RateLimit, services.ActionPaymentInitiate))

	// Lease parties are checked per lease by the service
	protected.GET("/leases", leaseHandlers.List)
	protected.GET("/leases/:id", leaseHandlers.Get)
	protected.POST("/leases/:id/sign", leaseHandlers.Sign)
	protected.POST("/leases/:id/terminate", leaseHandlers.Terminate)
	protected.GET("/leases/:id/document", leaseHandlers.Document)
	protected.GET("/leases/:id/payments", leaseHandlers.Payments)

	verificationLimit := middleware.RateLimit(svc.RateLimit, services.ActionVerificationRequest)
	protected.POST("/verifications/oneci", verificationHandlers.SubmitONECI(), verificationLimit)
	protected.POST("/verifications/cnam", verificationHandlers.SubmitCNAM(), verificationLimit)
	protected.POST("/verifications/passport", verificationHandlers.SubmitPassport(), verificationLimit)
	protected.GET("/verifications/mine", verificationHandlers.ListMine)

	mandates := protected.Group("/mandates", rbac.RequireRole(common.RoleOwner, common.RoleAgency, common.RoleAdmin), rbac.RequireMFACompliance())
	mandates.POST("", mandateHandlers.Request, rbac.RequireRole(common.RoleAgency))
	mandates.GET("", mandateHandlers.List)
	mandates.POST("/:id/accept", mandateHandlers.Accept)
	mandates.POST("/:id/reject", mandateHandlers.Reject)
	mandates.POST("/:id/revoke", mandateHandlers.Revoke)

	protected.GET("/notifications", notificationHandlers.List)
	protected.POST("/notifications/:id/read", notificationHandlers.MarkRead)

	outbound := protected.Group("/notifications", rbac.RequireRole(common.RoleAdmin), rbac.RequireMFACompliance())
	outbound.POST("/email", notificationHandlers.SendEmail)
	outbound.POST("/sms", notificationHandlers.SendSMS)

	ai := protected.Group("/ai")
	ai.POST("/moderate", aiHandlers.Moderate)
	ai.POST("/images", aiHandlers.GenerateImage, middleware.RateLimit(svc.RateLimit, services.ActionAIGeneration))

	// Trust third parties review identity documents
	reviewers := v1.Group("/admin", authMW.RequireAuth(), rbac.RequireRole(common.RoleTrustThirdParty, common.RoleAdmin),
		rbac.RequireMFACompliance(), audit.AuditRequest(middleware.AuditHigh))
	reviewers.GET("/verifications", verificationHandlers.ListPending)
	reviewers.POST("/verifications/:id/review", verificationHandlers.Review)
	reviewers.GET("/verifications/:id/document", verificationHandlers.Document)

	admin := v1.Group("/admin", authMW.RequireAuth(), rbac.RequireRole(common.RoleAdmin),
		rbac.RequireMFACompliance(), audit.AuditRequest(middleware.AuditHigh))
	admin.GET("/certifications", leaseHandlers.ListPendingCertifications)
	admin.POST("/certifications/:id/review", leaseHandlers.ReviewCertification)
	admin.POST("/properties/:id/moderation", propertyHandlers.Review)
	admin.GET("/mfa/audit", mfaHandlers.Audit)
	admin.GET("/audit-logs", auditLogsHandlers.ListAuditLogs)
}
