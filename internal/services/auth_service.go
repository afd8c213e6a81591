package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"montoit/internal/caching"
	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "montoit-auth"
	tokenAudience = "montoit-api"
)

var errInvalidCredentials = &common.AppError{Kind: common.KindUnauthorized, Message: "Invalid email or password"}

// AuthService handles signup, login and JWT token management
type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest, clientIP string) (*models.TokenResponse, error)
	Login(ctx context.Context, email, password, clientIP string) (*models.TokenResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// Token management
	GenerateTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	Logout(ctx context.Context, claims *TokenClaims, refreshToken string) error
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   repositories.UserRepository
	cacheSvc   caching.CacheService
	rateLimit  RateLimitService
	logger     *zap.Logger
	jwtSecret  []byte
	tokenTTL   int // Access token TTL in seconds
	refreshTTL int // Refresh token TTL in seconds
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo repositories.UserRepository, cacheSvc caching.CacheService, rateLimit RateLimitService, logger *zap.Logger, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) AuthService {
	return &authService{
		userRepo:   userRepo,
		cacheSvc:   cacheSvc,
		rateLimit:  rateLimit,
		logger:     logger,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

func (r *SignupRequest) validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)

	if err := common.ValidateEmail(r.Email); err != nil {
		return common.ValidationError(err.Error())
	}
	if len(r.Password) < 8 {
		return common.ValidationError("password must be at least 8 characters")
	}
	if err := common.ValidateRequiredString(r.FullName, "full_name"); err != nil {
		return common.ValidationError(err.Error())
	}
	if r.Phone != "" {
		if err := common.ValidateIvorianPhone(r.Phone); err != nil {
			return common.ValidationError(err.Error())
		}
		r.Phone = common.NormalizePhone(r.Phone)
	}
	if err := common.ValidateSignupRole(r.Role); err != nil {
		return common.ValidationError(err.Error())
	}
	return nil
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest, clientIP string) (*models.TokenResponse, error) {
	identifier := "ip:" + clientIP
	if limit := s.rateLimit.Check(ctx, identifier, ActionSignup); !limit.Allowed {
		return nil, common.NewError(common.KindRateLimited, "Too many signups from this address, please try again later", nil)
	}
	s.rateLimit.Record(ctx, identifier, ActionSignup)

	if err := req.validate(); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, common.ConflictError("email is already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        common.StringPtr(req.Phone),
		Role:         req.Role,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if MFARequiredRoles[user.Role] {
		user.MFARequiredSince = &now
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return s.GenerateTokens(ctx, user)
}

// Login checks credentials; failed attempts count against the login rate
// limit of both the email and the client address
func (s *authService) Login(ctx context.Context, email, password, clientIP string) (*models.TokenResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	identifiers := []string{"email:" + email}
	if clientIP != "" {
		identifiers = append(identifiers, "ip:"+clientIP)
	}

	for _, identifier := range identifiers {
		if limit := s.rateLimit.Check(ctx, identifier, ActionLogin); !limit.Allowed {
			return nil, common.NewError(common.KindRateLimited,
				fmt.Sprintf("Too many login attempts, try again after %s", limit.ResetAt.Format(time.RFC3339)), nil)
		}
	}
	recordFailure := func() {
		for _, identifier := range identifiers {
			s.rateLimit.Record(ctx, identifier, ActionLogin)
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			recordFailure()
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		recordFailure()
		return nil, errInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return nil, common.ForbiddenError("account is suspended")
	}

	return s.GenerateTokens(ctx, user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GenerateTokens generates access and refresh tokens for a user
func (s *authService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		UserID:  user.ID.String(),
		Role:    user.Role,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %v", err)
	}

	refreshToken := generateSecureToken()
	refreshTokenHash := hashToken(refreshToken)

	refreshTokenData := fmt.Sprintf("%s:%s:%d", user.ID.String(), refreshTokenHash, now.Unix()+int64(s.refreshTTL))
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	if err := s.cacheSvc.SetString(ctx, cacheKey, refreshTokenData, time.Duration(s.refreshTTL)*time.Second); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokenTTL,
		RefreshToken: refreshToken,
		UserID:       user.ID.String(),
		Role:         user.Role,
		TokenID:      tokenID,
		IssuedAt:     now,
	}, nil
}

// RefreshToken rotates a refresh token and issues a fresh token pair
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	invalid := &common.AppError{Kind: common.KindUnauthorized, Message: "Invalid refresh token"}

	refreshTokenHash := hashToken(refreshToken)
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	tokenData, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	if tokenData == "" {
		return nil, invalid
	}

	parts := strings.Split(tokenData, ":")
	if len(parts) != 3 || parts[1] != refreshTokenHash {
		return nil, invalid
	}

	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		_ = s.cacheSvc.Delete(ctx, cacheKey)
		return nil, invalid
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, invalid
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalid
		}
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, common.ForbiddenError("account is suspended")
	}

	if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
		s.logger.Warn("failed to delete rotated refresh token", zap.Error(err))
	}

	return s.GenerateTokens(ctx, user)
}

// ValidateToken validates a JWT access token and rejects revoked ones
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	jwtToken, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	claims, ok := jwtToken.Claims.(*TokenClaims)
	if !ok || !jwtToken.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	revoked, err := s.cacheSvc.GetString(ctx, fmt.Sprintf("token_blacklist:%s", claims.TokenID))
	if err != nil {
		s.logger.Warn("token blacklist lookup failed", zap.Error(err))
	} else if revoked != "" {
		return nil, fmt.Errorf("token has been revoked")
	}

	return claims, nil
}

// Logout blacklists the access token until it expires and drops the refresh token
func (s *authService) Logout(ctx context.Context, claims *TokenClaims, refreshToken string) error {
	if claims != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl > 0 {
			if err := s.cacheSvc.SetString(ctx, fmt.Sprintf("token_blacklist:%s", claims.TokenID), "revoked", ttl); err != nil {
				return fmt.Errorf("failed to revoke access token: %w", err)
			}
		}
	}

	if refreshToken != "" {
		cacheKey := fmt.Sprintf("refresh_token:%s", hashToken(refreshToken))
		if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}
	return nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)
}

// hashToken creates a SHA-256 hash of the token for secure storage
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
