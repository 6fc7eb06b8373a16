package auth

import (
	"context"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/internal/models"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"github.com/akeren/clothiq-api/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/akeren/clothiq-api/domain/auth")

const invalidCredentialsMessage = "invalid email or password"

type AuthService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*SessionResponse, error)
	SignIn(ctx context.Context, req *SignInRequest) (*SessionResponse, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*UserResponse, error)
	// RequestPasswordReset never reveals whether the email has an account.
	RequestPasswordReset(ctx context.Context, req *PasswordResetRequest) error
	CompletePasswordReset(ctx context.Context, req *CompletePasswordResetRequest) error
}

type ServiceConfig struct {
	ResetTokenTTL time.Duration
}

type authService struct {
	logger     *log.Logger
	repository AuthRepository
	tokens     *TokenIssuer
	revoked    RevocationStore
	notifier   ResetNotifier
	resetTTL   time.Duration
	now        func() time.Time
}

// NewAuthService accepts a nil notifier; password reset requests then fail
// with a CONFIGURATION_ERROR.
func NewAuthService(logger *log.Logger, repository AuthRepository, tokens *TokenIssuer, revoked RevocationStore, notifier ResetNotifier, cfg ServiceConfig) AuthService {
	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}

	return &authService{
		logger:     logger,
		repository: repository,
		tokens:     tokens,
		revoked:    revoked,
		notifier:   notifier,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.SignUp")
	defer span.End()

	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be empty", nil)
	}

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	email := utils.NormalizeEmail(req.Email)
	if email == "" {
		return nil, apperrors.NewInvalidRequestError("email is required", nil)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repository.CreateUser(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			logger.Error("Failed to create user", "error", err)
			span.SetStatus(codes.Error, "create user failed")
		}
		return nil, err
	}

	logger.Info("User signed up", "user_id", user.ID)
	return s.newSession(user)
}

func (s *authService) SignIn(ctx context.Context, req *SignInRequest) (*SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.SignIn")
	defer span.End()

	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be empty", nil)
	}

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	email := utils.NormalizeEmail(req.Email)
	user, err := s.repository.FindUserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			passwordMatches(string(dummyHash), req.Password)
			return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage, nil)
		}
		logger.Error("Failed to load user for sign-in", "error", err)
		return nil, err
	}

	if !passwordMatches(user.PasswordHash, req.Password) {
		logger.Info("Sign-in rejected", "user_id", user.ID)
		return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage, nil)
	}

	return s.newSession(user)
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.authenticate(ctx, token)
	if err != nil {
		return err
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to revoke session", "error", err)
		return apperrors.NewInternalServerError("unable to sign out", err)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, token string) (*UserResponse, error) {
	claims, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repository.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError("invalid session token", err)
		}
		return nil, err
	}

	response := ToUserResponse(user)
	return &response, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, req *PasswordResetRequest) error {
	ctx, span := tracer.Start(ctx, "auth.RequestPasswordReset")
	defer span.End()

	if req == nil {
		return apperrors.NewInvalidRequestError("request cannot be empty", nil)
	}

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if s.notifier == nil {
		logger.Error("Password reset requested but email notifications are not configured")
		return apperrors.NewConfigurationError("Email configuration missing on server.", nil)
	}

	email := utils.NormalizeEmail(req.Email)
	user, err := s.repository.FindUserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			logger.Info("Password reset requested for unknown email", "email", log.MaskEmail(email))
			return nil
		}
		logger.Error("Failed to load user for password reset", "error", err)
		return err
	}

	token, digest, err := newResetToken()
	if err != nil {
		return apperrors.NewInternalServerError("unable to start password reset", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: digest,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.repository.CreatePasswordReset(ctx, reset); err != nil {
		logger.Error("Failed to store password reset", "error", err)
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token, s.resetTTL); err != nil {
		logger.Error("Failed to send password reset email", "user_id", user.ID, "error", err)
		span.RecordError(err)
		return apperrors.NewInternalServerError("unable to send password reset email", err)
	}

	logger.Info("Password reset email sent", "user_id", user.ID)
	return nil
}

func (s *authService) CompletePasswordReset(ctx context.Context, req *CompletePasswordResetRequest) error {
	if req == nil {
		return apperrors.NewInvalidRequestError("request cannot be empty", nil)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}

	user, err := s.repository.ConsumePasswordReset(ctx, hashResetToken(req.Token), hash, s.now())
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewInvalidRequestError("reset token is invalid or has expired", err)
		}
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to complete password reset", "error", err)
		return err
	}

	log.GetLoggerInstanceFromContext(ctx, s.logger).Info("Password reset completed", "user_id", user.ID)
	return nil
}

func (s *authService) authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing bearer token", nil)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.GetLoggerInstanceFromContext(ctx, s.logger).Error("Failed to check session revocation", "error", err)
		return nil, apperrors.NewInternalServerError("unable to verify session", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorizedError("session has been signed out", nil)
	}

	return claims, nil
}

func (s *authService) newSession(user *models.User) (*SessionResponse, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &SessionResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        ToUserResponse(user),
	}, nil
}
