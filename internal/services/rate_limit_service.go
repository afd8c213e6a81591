package services

import (
	"context"
	"time"

	"montoit/internal/repositories"

	"go.uber.org/zap"
)

// Rate-limited actions
const (
	ActionLogin               = "login"
	ActionSignup              = "signup"
	ActionApplicationSubmit   = "application_submit"
	ActionVerificationRequest = "verification_request"
	ActionPaymentInitiate     = "payment_initiate"
	ActionAIGeneration        = "ai_generation"
	ActionPasswordReset       = "password_reset"
)

type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

// RateLimitRules is the per-action allowance
var RateLimitRules = map[string]RateLimitRule{
	ActionLogin:               {Limit: 5, Window: 15 * time.Minute},
	ActionSignup:              {Limit: 3, Window: time.Hour},
	ActionApplicationSubmit:   {Limit: 10, Window: 24 * time.Hour},
	ActionVerificationRequest: {Limit: 3, Window: 24 * time.Hour},
	ActionPaymentInitiate:     {Limit: 10, Window: time.Hour},
	ActionAIGeneration:        {Limit: 20, Window: 24 * time.Hour},
	ActionPasswordReset:       {Limit: 3, Window: time.Hour},
}

type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type RateLimitService interface {
	// Check never fails: storage errors allow the request
	Check(ctx context.Context, identifier, action string) RateLimitResult
	// Record logs and swallows storage errors
	Record(ctx context.Context, identifier, action string)
}

type rateLimitService struct {
	repo   repositories.RateLimitRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimitService(repo repositories.RateLimitRepository, logger *zap.Logger) RateLimitService {
	return &rateLimitService{repo: repo, logger: logger, now: time.Now}
}

func (s *rateLimitService) Check(ctx context.Context, identifier, action string) RateLimitResult {
	now := s.now()
	rule, ok := RateLimitRules[action]
	if !ok {
		return RateLimitResult{Allowed: true, ResetAt: now}
	}

	open := RateLimitResult{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit, ResetAt: now.Add(rule.Window)}

	since := now.Add(-rule.Window)
	count, err := s.repo.CountSince(ctx, identifier, action, since)
	if err != nil {
		s.logger.Warn("rate limit check failed, allowing request",
			zap.String("action", action), zap.String("identifier", identifier), zap.Error(err))
		return open
	}

	result := RateLimitResult{
		Allowed:   count < rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		ResetAt:   now.Add(rule.Window),
	}

	if count > 0 {
		oldest, err := s.repo.OldestSince(ctx, identifier, action, since)
		if err != nil {
			s.logger.Warn("rate limit reset lookup failed", zap.String("action", action), zap.Error(err))
		} else if oldest != nil {
			result.ResetAt = oldest.Add(rule.Window)
		}
	}

	return result
}

func (s *rateLimitService) Record(ctx context.Context, identifier, action string) {
	if err := s.repo.Record(ctx, identifier, action); err != nil {
		s.logger.Warn("failed to record rate limit event",
			zap.String("action", action), zap.String("identifier", identifier), zap.Error(err))
	}
}
