package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/auth"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

type AuthService struct {
	users  UserStore
	tokens *auth.TokenIssuer
	policy *auth.Policy
	logger *zap.Logger
}

func NewAuthService(users UserStore, tokens *auth.TokenIssuer, policy *auth.Policy, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, policy: policy, logger: logger}
}

// Session is what a successful sign-in hands back to the transport.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// SignUp registers a new USER account.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	user := &models.User{
		ID:        uuid.New(),
		FirstName: normalize(req.FirstName),
		LastName:  normalize(req.LastName),
		Email:     normalize(req.Email),
		Role:      models.RoleUser,
	}
	if user.FirstName == "" || user.LastName == "" || user.Email == "" || req.Password == "" {
		return nil, models.ErrMissingFields
	}

	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return nil, models.ErrUserAlreadyExists
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("👤 User signed up", zap.String("user_id", user.ID.String()))
	return user, nil
}

// SignIn checks credentials and issues an access and a refresh token.
func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalize(req.Email))
	if err != nil {
		return nil, err
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, models.ErrWrongCredentials
	}

	access, err := s.tokens.Issue(user, auth.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(user, auth.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", models.ErrUnauthorized
		}
		return "", err
	}
	return s.tokens.Issue(user, auth.AccessToken)
}

// Authenticate resolves an access token to the caller, with the role as stored now.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.Principal, error) {
	id, err := s.tokens.Parse(accessToken, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}
	return &models.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Authorize returns models.ErrForbidden when the role policy denies action.
func (s *AuthService) Authorize(ctx context.Context, principal *models.Principal, action string) error {
	allowed, err := s.policy.Allow(ctx, principal.Role, action)
	if err != nil {
		return err
	}
	if !allowed {
		return models.ErrForbidden
	}
	return nil
}

// CanReadAnyBooking reports whether principal may see other users' bookings.
func (s *AuthService) CanReadAnyBooking(ctx context.Context, principal *models.Principal) bool {
	return s.Authorize(ctx, principal, auth.ActionBookingReadAny) == nil
}

func (s *AuthService) AccessTTL() int  { return int(s.tokens.AccessTTL().Seconds()) }
func (s *AuthService) RefreshTTL() int { return int(s.tokens.RefreshTTL().Seconds()) }
