package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/argon2"

	"github.com/pickline/backend/internal/audit"
	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store"
)

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"` // User email
	Password string `json:"password" validate:"required" example:"password123"`        // User password
}

// SignupRequest represents the registration request payload
// @Description Signup request structure
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email" example:"ada@example.com"`          // User email address
	Password    string `json:"password" validate:"required,min=8,max=128" example:"password123"`   // User password
	DisplayName string `json:"displayName,omitempty" validate:"omitempty,max=64" example:"Ada L."` // Public name
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token     string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Claims carried by access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	store       store.Store
	redis       *redis.Client
	validator   *ValidationHelper
	jwtCfg      config.JWTConfig
	argon       config.Argon2Config
	limits      config.AuthConfig
	signupBonus decimal.Decimal
	audit       *audit.AuditLogger
	logger      *slog.Logger
	now         func() time.Time
	newID       func() uuid.UUID
}

func NewAuthService(st store.Store, redisClient *redis.Client, cfg *config.Config, auditLogger *audit.AuditLogger, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:       st,
		redis:       redisClient,
		validator:   NewValidationHelper(),
		jwtCfg:      cfg.JWT,
		argon:       cfg.Argon2,
		limits:      cfg.Auth,
		signupBonus: cfg.Ledger.SignupBonus,
		audit:       auditLogger,
		logger:      logger.With(slog.String("component", "auth")),
		now:         time.Now,
		newID:       uuid.New,
	}
}

// Signup creates a user, credits the optional signup bonus and returns a
// token for the new account.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	email := normalizeEmail(req.Email)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, ctxErr(ctx, err)
	}

	hashed, err := hashPassword(req.Password, s.argon)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	user := &models.User{
		ID:           s.newID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashed,
		Role:         models.RoleUser,
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		if s.signupBonus.IsPositive() {
			user.Balance = s.signupBonus.Round(MoneyPlaces)
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: email already registered", ErrConflict)
			}
			return err
		}
		if user.Balance.IsPositive() {
			return tx.InsertTransaction(ctx, &models.Transaction{
				ID:          s.newID(),
				UserID:      user.ID,
				Type:        models.TxTypeDeposit,
				Amount:      user.Balance,
				Status:      models.TxStatusCompleted,
				Description: "Signup bonus",
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, ctxErr(ctx, err)
	}

	s.audit.LogOperation(audit.EventSignup, user.ID, map[string]string{"signup_bonus": Money(user.Balance)})
	s.logger.Info("user created", slog.String("user_id", user.ID.String()))

	return s.issue(user)
}

// Login verifies credentials and returns a fresh token. Failed attempts are
// counted per email; once the limit is reached every attempt is refused
// until the window expires.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	email := normalizeEmail(req.Email)

	if err := s.checkLoginAttempts(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordFailedLogin(ctx, email)
			return nil, ErrAuth
		}
		return nil, ctxErr(ctx, err)
	}

	if !verifyPassword(req.Password, user.PasswordHash, s.argon) {
		s.logger.Info("invalid password", slog.String("user_id", user.ID.String()))
		s.recordFailedLogin(ctx, email)
		return nil, ErrAuth
	}

	s.clearFailedLogins(ctx, email)
	return s.issue(user)
}

// Logout blacklists token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if s.redis == nil {
		s.logger.Warn("redis unavailable, token not blacklisted")
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// ParseToken validates signature, expiry and the logout blacklist.
func (s *AuthService) ParseToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, blacklistKey(token)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: token revoked", ErrAuth)
		}
	}
	return claims, nil
}

func (s *AuthService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", ErrAuth)
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", ErrAuth)
	}
	return claims, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	token, expiresAt, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GenerateToken signs an HS256 access token for user.
func (s *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.jwtCfg.ExpiryHours) * time.Hour)
	claims := Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *AuthService) checkLoginAttempts(ctx context.Context, email string) error {
	if s.redis == nil || s.limits.MaxFailedLogins <= 0 {
		return nil
	}
	count, err := s.redis.Get(ctx, loginAttemptsKey(email)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("failed to read login attempts", slog.String("error", err.Error()))
		return nil
	}
	if count >= s.limits.MaxFailedLogins {
		return fmt.Errorf("%w: try again later", ErrRateLimited)
	}
	return nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, email string) {
	if s.redis == nil || s.limits.MaxFailedLogins <= 0 {
		return
	}
	key := loginAttemptsKey(email)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.limits.LockoutWindow)
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to record login attempt", slog.String("error", err.Error()))
	}
}

func (s *AuthService) clearFailedLogins(ctx context.Context, email string) {
	if s.redis == nil || s.limits.MaxFailedLogins <= 0 {
		return
	}
	if err := s.redis.Del(ctx, loginAttemptsKey(email)).Err(); err != nil {
		s.logger.Warn("failed to clear login attempts", slog.String("error", err.Error()))
	}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

func loginAttemptsKey(email string) string {
	return "login_attempts:" + email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string, p config.Argon2Config) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string, p config.Argon2Config) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
