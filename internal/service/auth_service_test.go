package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/auth"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/clock"
	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

func newAuthService(t *testing.T, users *fakeUserStore, now time.Time) *AuthService {
	t.Helper()
	policy, err := auth.NewPolicy(context.Background())
	require.NoError(t, err)
	tokens := auth.NewTokenIssuer("test-secret", 15*time.Minute, 7*24*time.Hour, clock.NewFixed(now))
	return NewAuthService(users, tokens, policy, zap.NewNop())
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	svc := newAuthService(t, users, time.Now())

	user, err := svc.SignUp(ctx, models.SignUpRequest{FirstName: " Ada", LastName: "LOVELACE", Email: "Ada@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "ada", user.FirstName)
	assert.Equal(t, "lovelace", user.LastName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	_, err = svc.SignUp(ctx, models.SignUpRequest{FirstName: "a", LastName: "b", Email: "ADA@example.com", Password: "other"})
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

	_, err = svc.SignUp(ctx, models.SignUpRequest{FirstName: " ", LastName: "b", Email: "x@example.com", Password: "other"})
	assert.ErrorIs(t, err, models.ErrMissingFields)

	session, err := svc.SignIn(ctx, models.SignInRequest{Email: "ADA@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.NotEqual(t, session.AccessToken, session.RefreshToken)

	_, err = svc.SignIn(ctx, models.SignInRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrWrongCredentials)

	_, err = svc.SignIn(ctx, models.SignInRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	assert.Equal(t, 900, svc.AccessTTL())
	assert.Equal(t, 604800, svc.RefreshTTL())
}

func TestAuthService_Tokens(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	svc := newAuthService(t, users, time.Now())

	_, err := svc.SignUp(ctx, models.SignUpRequest{FirstName: "grace", LastName: "hopper", Email: "grace@example.com", Password: "cobol"})
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, models.SignInRequest{Email: "grace@example.com", Password: "cobol"})
	require.NoError(t, err)

	t.Run("authenticate reads the current role", func(t *testing.T) {
		principal, err := svc.Authenticate(ctx, session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, principal.Role)

		promoted := users.users[session.User.ID]
		promoted.Role = models.RoleAdmin
		users.users[promoted.ID] = promoted

		principal, err = svc.Authenticate(ctx, session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, principal.Role)
	})

	t.Run("token types are not interchangeable", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, session.RefreshToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)

		_, err = svc.Refresh(ctx, session.AccessToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("refresh issues a usable access token", func(t *testing.T) {
		access, err := svc.Refresh(ctx, session.RefreshToken)
		require.NoError(t, err)

		principal, err := svc.Authenticate(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, principal.UserID)
	})

	t.Run("deleted user is unauthorized", func(t *testing.T) {
		delete(users.users, session.User.ID)

		_, err := svc.Authenticate(ctx, session.AccessToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		_, err = svc.Refresh(ctx, session.RefreshToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestAuthService_Authorize(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, newFakeUserStore(), time.Now())

	user := &models.Principal{Role: models.RoleUser}
	admin := &models.Principal{Role: models.RoleAdmin}

	assert.NoError(t, svc.Authorize(ctx, user, auth.ActionBookingCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, user, auth.ActionVenueWrite), models.ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, admin, auth.ActionVenueWrite))

	assert.False(t, svc.CanReadAnyBooking(ctx, user))
	assert.True(t, svc.CanReadAnyBooking(ctx, admin))
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	authSvc := newAuthService(t, users, time.Now())
	svc := NewUserService(users)

	ada, err := authSvc.SignUp(ctx, models.SignUpRequest{FirstName: "ada", LastName: "lovelace", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = authSvc.SignUp(ctx, models.SignUpRequest{FirstName: "alan", LastName: "turing", Email: "alan@example.com", Password: "secret2"})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)

	_, err = svc.UpdateProfile(ctx, ada.ID, models.UpdateUserRequest{})
	assert.ErrorIs(t, err, models.ErrEmptyForm)

	_, err = svc.UpdateProfile(ctx, ada.ID, models.UpdateUserRequest{Email: ptr("ALAN@example.com")})
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	_, err = svc.UpdateProfile(ctx, ada.ID, models.UpdateUserRequest{LastName: ptr("  ")})
	assert.ErrorIs(t, err, models.ErrMissingFields)

	updated, err := svc.UpdateProfile(ctx, ada.ID, models.UpdateUserRequest{
		FirstName: ptr("Augusta"),
		Email:     ptr("ADA@example.com"),
		Password:  ptr("new-secret"),
	})
	require.NoError(t, err)
	assert.Equal(t, "augusta", updated.FirstName)
	assert.Equal(t, "ada@example.com", updated.Email)

	_, err = authSvc.SignIn(ctx, models.SignInRequest{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrWrongCredentials)
	_, err = authSvc.SignIn(ctx, models.SignInRequest{Email: "ada@example.com", Password: "new-secret"})
	assert.NoError(t, err)

	page, err := svc.ListUsers(ctx, models.PageRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.True(t, page.Meta.HasMore)
	require.NotNil(t, page.Meta.NextCursor)
}
