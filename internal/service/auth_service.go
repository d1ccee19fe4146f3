package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"couponme/api/internal/apperr"
	"couponme/api/internal/config"
	"couponme/api/internal/ids"
	"couponme/api/internal/models"
	"couponme/api/internal/repository"
	"couponme/api/internal/security"
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      Clock
}

func NewAuthService(users UserStore, sessions SessionStore, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email    string          `json:"email" validate:"required,email,max=254"`
	Password string          `json:"password" validate:"required,min=8,max=128"`
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=USER BUSINESS"`
}

type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	SessionID    string
	User         models.User
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Role == "" {
		input.Role = models.UserRoleUser
	}
	if err := validateStruct(input); err != nil {
		return AuthResult{}, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, apperr.Conflict(apperr.MsgEmailTaken)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, apperr.Internal(err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Name:         input.Name,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, apperr.Conflict(apperr.MsgEmailTaken)
		}
		return AuthResult{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return s.createSession(ctx, user, "", "")
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateStruct(input); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.New(apperr.KindUnauthorized, apperr.MsgInvalidCredentials)
		}
		return AuthResult{}, apperr.Internal(err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if err != nil || !ok {
		return AuthResult{}, apperr.New(apperr.KindUnauthorized, apperr.MsgInvalidCredentials)
	}

	return s.createSession(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ipAddress, userAgent string) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, apperr.Internal(fmt.Errorf("create session: %w", err))
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	return s.issue(user, session.ID, refreshToken)
}

func (s *AuthService) issue(user models.User, sessionID, refreshToken string) (AuthResult, error) {
	accessToken, err := security.GenerateAccessToken(s.cfg.JWTAccessSecret, security.AccessTokenInput{
		UserID:           user.ID,
		SessionID:        sessionID,
		Role:             string(user.Role),
		MembershipExpiry: user.MembershipExpiry,
	}, s.cfg.JWTAccessTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(s.cfg.JWTAccessTTL),
		SessionID:    sessionID,
		User:         user,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}

// Refresh rotates the refresh token of a live session and issues a new
// access token carrying the user's current role and membership.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, fieldError("refreshToken", "required")
	}

	session, err := s.sessions.FindByRefreshHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return AuthResult{}, apperr.Unauthorized()
		}
		return AuthResult{}, apperr.Internal(err)
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, apperr.New(apperr.KindUnauthorized, apperr.MsgSessionExpired)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Unauthorized()
		}
		return AuthResult{}, apperr.Internal(err)
	}

	newToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	if err := s.sessions.Rotate(ctx, session.ID, newHash, s.now().Add(s.cfg.RefreshTTL)); err != nil {
		return AuthResult{}, apperr.Internal(fmt.Errorf("rotate session: %w", err))
	}

	return s.issue(user, session.ID, newToken)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return apperr.Internal(err)
	}
	return nil
}

// Authenticate verifies an access token and reloads its session and user so
// that role changes, deletions and logouts take effect immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, security.AccessClaims, error) {
	claims, err := security.ParseAccessToken(token, s.cfg.JWTAccessSecret)
	if err != nil {
		return models.User{}, security.AccessClaims{}, apperr.Wrap(apperr.KindUnauthorized, apperr.MsgUnauthorized, err)
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, security.AccessClaims{}, apperr.Unauthorized()
		}
		return models.User{}, security.AccessClaims{}, apperr.Internal(err)
	}
	if session.UserID != claims.UserID || session.ExpiresAt.Before(s.now()) {
		return models.User{}, security.AccessClaims{}, apperr.New(apperr.KindUnauthorized, apperr.MsgSessionExpired)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, security.AccessClaims{}, apperr.Unauthorized()
		}
		return models.User{}, security.AccessClaims{}, apperr.Internal(err)
	}
	return user, *claims, nil
}

func (s *AuthService) Touch(ctx context.Context, sessionID, ip, userAgent string) {
	if err := s.sessions.Touch(ctx, sessionID, ip, userAgent); err != nil {
		s.log.Debug().Err(err).Str("session_id", sessionID).Msg("touch session failed")
	}
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return removed, nil
}
